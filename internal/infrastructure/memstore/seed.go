package memstore

import (
	"fmt"
	"time"

	"github.com/marketplace/orderflow/internal/domain/chat"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/shopspring/decimal"
)

// SeedPassword is the password of every seeded account
const SeedPassword = "password123"

// Seeded account IDs
const (
	SeedBuyerID      = "u-buyer"
	SeedArtisanID    = "u-artisan"
	SeedSupplierID   = "u-supplier"
	SeedFinanceID    = "u-finance"
	SeedSupervisorID = "u-supervisor"
	SeedDriverID     = "u-driver"
	SeedAdminID      = "u-admin"
)

type seedUser struct {
	id, name, email string
	role            order.Role
}

var seedUsers = []seedUser{
	{SeedBuyerID, "Hana Bekele", "buyer@example.com", order.RoleBuyer},
	{SeedArtisanID, "Dawit Tesfaye", "artisan@example.com", order.RoleArtisan},
	{SeedSupplierID, "Addis Clay Supply", "supplier@example.com", order.RoleSupplier},
	{SeedFinanceID, "Meron Alemu", "finance@example.com", order.RoleFinance},
	{SeedSupervisorID, "Yonas Girma", "supervisor@example.com", order.RoleSupervisor},
	{SeedDriverID, "Samuel Haile", "driver@example.com", order.RoleDriver},
	{SeedAdminID, "Admin", "admin@example.com", order.RoleAdmin},
}

// Seed fills the store with one account per role, a small catalog and orders
// spread over both lifecycles
func Seed(s *Store) error {
	users := make(map[string]*User, len(seedUsers))
	for _, su := range seedUsers {
		u, err := s.CreateUser(User{ID: su.id, Name: su.name, Email: su.email, Role: su.role}, SeedPassword)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.email, err)
		}
		users[u.ID] = u
	}

	basket := order.ProductRef{Ref: order.Ref{ID: "p-basket", Name: "Woven Basket"}, UnitPrice: decimal.NewFromInt(450)}
	vase := order.ProductRef{Ref: order.Ref{ID: "p-vase", Name: "Clay Vase"}, UnitPrice: decimal.NewFromInt(320)}
	clay := order.ProductRef{Ref: order.Ref{ID: "i-clay", Name: "Red Clay (25kg)"}}
	glaze := order.ProductRef{Ref: order.Ref{ID: "i-glaze", Name: "Glaze Set"}}
	for _, p := range []order.ProductRef{basket, vase, clay, glaze} {
		s.PutProduct(p)
	}

	ref := func(id string) *order.Ref {
		r := users[id].Ref()
		return &r
	}
	base := s.now().Add(-7 * 24 * time.Hour)
	goods := func(id string, p order.ProductRef, qty int64, status order.OrderStatus, payment order.PaymentStatus, day int) *order.Order {
		return &order.Order{
			ID:              id,
			Flavor:          order.FlavorGoods,
			Product:         p,
			Buyer:           users[SeedBuyerID].Ref(),
			Supplier:        ref(SeedSupplierID),
			Quantity:        int(qty),
			TotalPrice:      p.UnitPrice.Mul(decimal.NewFromInt(qty)),
			OrderStatus:     status,
			PaymentStatus:   payment,
			PaymentMethod:   "cash_on_delivery",
			DeliveryAddress: "Bole, Addis Ababa",
			CreatedAt:       base.Add(time.Duration(day) * 24 * time.Hour),
		}
	}
	supply := func(id string, p order.ProductRef, qty int, status order.OrderStatus, total int64, day int) *order.Order {
		return &order.Order{
			ID:            id,
			Flavor:        order.FlavorSupply,
			Product:       p,
			Buyer:         users[SeedArtisanID].Ref(),
			Artisan:       ref(SeedArtisanID),
			Supplier:      ref(SeedSupplierID),
			Quantity:      qty,
			TotalPrice:    decimal.NewFromInt(total),
			OrderStatus:   status,
			PaymentStatus: order.PaymentStatusPending,
			CreatedAt:     base.Add(time.Duration(day) * 24 * time.Hour),
		}
	}

	orders := []*order.Order{
		goods("g-1001", basket, 2, order.OrderStatusPending, order.PaymentStatusPending, 0),
		goods("g-1002", vase, 1, order.OrderStatusShipped, order.PaymentStatusPending, 1),
		goods("g-1003", basket, 1, order.OrderStatusReceived, order.PaymentStatusPaid, 2),
		supply("s-2001", clay, 4, order.OrderStatusPending, 0, 3),
		supply("s-2002", glaze, 10, order.OrderStatusDelivered, 0, 4),
		supply("s-2003", clay, 2, order.OrderStatusReceived, 1200, 5),
	}
	orders[1].Driver = ref(SeedDriverID)
	orders[2].Driver = ref(SeedDriverID)
	for _, o := range orders {
		s.InsertOrder(o)
	}

	s.AppendMessage(chat.Message{
		From:   SeedArtisanID,
		To:     SeedSupplierID,
		Text:   "Is the glaze set available in blue?",
		SentAt: base.Add(4 * 24 * time.Hour),
	})
	s.AppendMessage(chat.Message{
		From:   SeedSupplierID,
		To:     SeedArtisanID,
		Text:   "Yes, it ships with the next delivery.",
		SentAt: base.Add(4*24*time.Hour + time.Hour),
	})
	return nil
}
