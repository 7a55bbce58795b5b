package order

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payload is the loose wire shape shared by goods and inventory orders.
// Relations arrive either populated (an object) or as a bare identifier.
type Payload struct {
	ID              string          `json:"_id,omitempty"`
	AltID           string          `json:"id,omitempty"`
	OrderType       string          `json:"orderType,omitempty"`
	Product         json.RawMessage `json:"product,omitempty"`
	Item            json.RawMessage `json:"item,omitempty"`
	Buyer           json.RawMessage `json:"buyer,omitempty"`
	Supplier        json.RawMessage `json:"supplier,omitempty"`
	Artisan         json.RawMessage `json:"artisan,omitempty"`
	Driver          json.RawMessage `json:"driver,omitempty"`
	Quantity        json.RawMessage `json:"quantity,omitempty"`
	TotalPrice      json.RawMessage `json:"totalPrice,omitempty"`
	OrderStatus     string          `json:"orderStatus,omitempty"`
	Status          string          `json:"status,omitempty"`
	PaymentStatus   string          `json:"paymentStatus,omitempty"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	PaymentCode     string          `json:"paymentCode,omitempty"`
	DeliveryAddress string          `json:"deliveryAddress,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
}

type relationObject struct {
	ID       string          `json:"_id,omitempty"`
	AltID    string          `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	FullName string          `json:"fullName,omitempty"`
	ItemName string          `json:"itemName,omitempty"`
	Email    string          `json:"email,omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Price    json.RawMessage `json:"price,omitempty"`
}

// Normalize converts a payload into the canonical Order. It never fails:
// fields that cannot be interpreted get display fallbacks and are recorded
// in Order.Problems.
func Normalize(p Payload) *Order {
	o := &Order{
		ID:              firstNonEmpty(p.ID, p.AltID),
		PaymentMethod:   p.PaymentMethod,
		PaymentCode:     p.PaymentCode,
		DeliveryAddress: p.DeliveryAddress,
		Notes:           p.Notes,
		CreatedAt:       parseTime(p.CreatedAt),
		UpdatedAt:       parseTime(p.UpdatedAt),
	}
	if o.ID == "" {
		o.Problems = append(o.Problems, "id")
	}

	o.Flavor = detectFlavor(p)

	productRaw := p.Product
	if o.Flavor == FlavorSupply && isAbsent(productRaw) {
		productRaw = p.Item
	}
	product, ok := parseProduct(productRaw)
	if !ok {
		o.Problems = append(o.Problems, "product")
	}
	o.Product = product

	if buyer, ok := parseRef(p.Buyer); ok {
		o.Buyer = buyer
	}
	o.Supplier = parseOptionalRef(p.Supplier)
	o.Artisan = parseOptionalRef(p.Artisan)
	o.Driver = parseOptionalRef(p.Driver)
	if o.Buyer.IsZero() && o.Artisan != nil {
		o.Buyer = *o.Artisan
	}

	qty, ok := parseInt(p.Quantity)
	if !ok || qty <= 0 {
		o.Problems = append(o.Problems, "quantity")
	}
	o.Quantity = qty

	total, ok := parseDecimal(p.TotalPrice)
	if !ok {
		if !isAbsent(p.TotalPrice) {
			o.Problems = append(o.Problems, "totalPrice")
		}
		total = decimal.Zero
	} else if total.IsNegative() {
		o.Problems = append(o.Problems, "totalPrice")
	}
	o.TotalPrice = total

	rawStatus := firstNonEmpty(p.OrderStatus, p.Status)
	status, ok := ParseOrderStatus(rawStatus)
	if !ok {
		o.Problems = append(o.Problems, "orderStatus")
	}
	o.OrderStatus = status

	if strings.TrimSpace(p.PaymentStatus) == "" {
		o.PaymentStatus = PaymentStatusPending
	} else {
		ps, ok := ParsePaymentStatus(p.PaymentStatus)
		if !ok {
			o.Problems = append(o.Problems, "paymentStatus")
		}
		o.PaymentStatus = ps
	}

	return o
}

// NormalizeAll normalizes a list of payloads
func NormalizeAll(payloads []Payload) []*Order {
	orders := make([]*Order, 0, len(payloads))
	for _, p := range payloads {
		orders = append(orders, Normalize(p))
	}
	return orders
}

// Encode renders the order in the wire shape of its flavor: goods orders use
// orderStatus and product, inventory orders use status, item and supplier.
func Encode(o *Order) Payload {
	p := Payload{
		ID:              o.ID,
		OrderType:       o.Flavor.String(),
		Buyer:           encodeRef(&o.Buyer),
		Supplier:        encodeRef(o.Supplier),
		Artisan:         encodeRef(o.Artisan),
		Driver:          encodeRef(o.Driver),
		Quantity:        json.RawMessage(strconv.Itoa(o.Quantity)),
		TotalPrice:      json.RawMessage(o.TotalPrice.String()),
		PaymentStatus:   o.PaymentStatus.String(),
		PaymentMethod:   o.PaymentMethod,
		PaymentCode:     o.PaymentCode,
		DeliveryAddress: o.DeliveryAddress,
		Notes:           o.Notes,
	}
	if !o.CreatedAt.IsZero() {
		p.CreatedAt = o.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !o.UpdatedAt.IsZero() {
		p.UpdatedAt = o.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	product := relationObject{ID: o.Product.ID, Name: o.Product.Name}
	if !o.Product.UnitPrice.IsZero() {
		product.Price = json.RawMessage(o.Product.UnitPrice.String())
	}
	productJSON, _ := json.Marshal(product)

	switch o.Flavor {
	case FlavorSupply:
		p.Status = o.OrderStatus.String()
		p.Item = productJSON
	default:
		p.OrderStatus = o.OrderStatus.String()
		p.Product = productJSON
	}
	return p
}

func detectFlavor(p Payload) Flavor {
	if f, ok := ParseFlavor(p.OrderType); ok {
		return f
	}
	if !isAbsent(p.Item) || !isAbsent(p.Supplier) {
		return FlavorSupply
	}
	if p.OrderStatus == "" && p.Status != "" {
		return FlavorSupply
	}
	return FlavorGoods
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parseRelation(raw json.RawMessage) (relationObject, bool) {
	if isAbsent(raw) {
		return relationObject{}, false
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return relationObject{ID: id}, id != ""
	}
	var obj relationObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return relationObject{}, false
	}
	obj.ID = firstNonEmpty(obj.ID, obj.AltID)
	obj.Name = firstNonEmpty(obj.Name, obj.FullName, obj.ItemName)
	return obj, obj.ID != "" || obj.Name != ""
}

func parseRef(raw json.RawMessage) (Ref, bool) {
	obj, ok := parseRelation(raw)
	if !ok {
		return Ref{}, false
	}
	return Ref{ID: obj.ID, Name: obj.Name, Email: obj.Email, Phone: obj.Phone}, true
}

func parseOptionalRef(raw json.RawMessage) *Ref {
	ref, ok := parseRef(raw)
	if !ok {
		return nil
	}
	return &ref
}

func parseProduct(raw json.RawMessage) (ProductRef, bool) {
	obj, ok := parseRelation(raw)
	if !ok {
		return ProductRef{}, false
	}
	price, _ := parseDecimal(obj.Price)
	return ProductRef{
		Ref:       Ref{ID: obj.ID, Name: obj.Name},
		UnitPrice: price,
	}, obj.ID != ""
}

func encodeRef(r *Ref) json.RawMessage {
	if r == nil || r.IsZero() {
		return nil
	}
	data, _ := json.Marshal(relationObject{ID: r.ID, Name: r.Name, Email: r.Email, Phone: r.Phone})
	return data
}

func unquote(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	return strings.Trim(s, `"`)
}

func parseInt(raw json.RawMessage) (int, bool) {
	if isAbsent(raw) {
		return 0, false
	}
	d, err := decimal.NewFromString(unquote(raw))
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return int(d.IntPart()), true
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	if isAbsent(raw) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(unquote(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
