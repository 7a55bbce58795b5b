package receipt

const receiptTemplateName = "receipt"

const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Receipt {{.Order.ID}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 12px; color: #222; }
  h1 { font-size: 18px; margin: 0 0 4px; }
  .muted { color: #777; }
  table { width: 100%; border-collapse: collapse; margin-top: 12px; }
  th, td { text-align: left; padding: 4px 2px; border-bottom: 1px solid #ddd; }
  td.num, th.num { text-align: right; }
  .total td { font-weight: bold; border-bottom: none; }
</style>
</head>
<body>
<h1>{{.Company}}</h1>
<div class="muted">{{.Kind}} receipt #{{.Order.ID}}</div>
<div class="muted">Issued {{formatDateTime .IssuedAt}}</div>

<table>
  <tr><th>Placed by</th><td>{{.Order.Owner.DisplayName}}</td></tr>
  {{- if .Order.Supplier}}
  <tr><th>Supplier</th><td>{{.Order.SupplierName}}</td></tr>
  {{- end}}
  {{- if .Order.Driver}}
  <tr><th>Delivered by</th><td>{{.Order.DriverName}}</td></tr>
  {{- end}}
  <tr><th>Status</th><td>{{label .Order.OrderStatus}}</td></tr>
  <tr><th>Payment</th><td>{{label .Order.PaymentStatus}}{{if .Order.PaymentMethod}} ({{.Order.PaymentMethod}}){{end}}</td></tr>
  {{- if .Order.DeliveryAddress}}
  <tr><th>Address</th><td>{{.Order.DeliveryAddress}}</td></tr>
  {{- end}}
  <tr><th>Ordered</th><td>{{formatDate .Order.CreatedAt}}</td></tr>
</table>

<table>
  <tr><th>Item</th><th class="num">Qty</th><th class="num">Unit</th><th class="num">Amount</th></tr>
  <tr>
    <td>{{.Order.Product.DisplayName}}</td>
    <td class="num">{{.Order.Quantity}}</td>
    <td class="num">{{formatMoneyRaw .UnitPrice}}</td>
    <td class="num">{{formatMoneyRaw .Order.TotalPrice}}</td>
  </tr>
  <tr class="total"><td colspan="3">Total</td><td class="num">{{formatMoney .Order.TotalPrice}}</td></tr>
</table>
{{- if .Order.Notes}}
<p class="muted">{{.Order.Notes}}</p>
{{- end}}
</body>
</html>`

const reportTemplateName = "order-report"

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 11px; color: #222; }
  table { width: 100%; border-collapse: collapse; }
  th, td { text-align: left; padding: 4px; border-bottom: 1px solid #ddd; }
  td.num, th.num { text-align: right; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div>{{.Company}} &middot; generated {{formatDateTime .IssuedAt}} &middot; {{len .Rows}} orders</div>
<table>
  <tr><th>Order</th><th>Type</th><th>Item</th><th>Placed by</th><th>Status</th><th>Payment</th><th class="num">Total</th><th>Actions</th></tr>
  {{- range .Rows}}
  <tr>
    <td>{{.Order.ID}}</td>
    <td>{{label .Order.Flavor}}</td>
    <td>{{.Order.Product.DisplayName}}</td>
    <td>{{.Order.Owner.DisplayName}}</td>
    <td>{{label .Order.OrderStatus}}</td>
    <td>{{label .Order.PaymentStatus}}</td>
    <td class="num">{{formatMoneyRaw .Order.TotalPrice}}</td>
    <td>{{range $i, $a := .Actions}}{{if $i}}, {{end}}{{label $a}}{{end}}</td>
  </tr>
  {{- end}}
  <tr><td colspan="6"><strong>Total</strong></td><td class="num"><strong>{{formatMoney .Total}}</strong></td><td></td></tr>
</table>
</body>
</html>`
