package ai

import (
	"context"
	"time"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/models"
	"go-erp-backend/internal/services"

	"github.com/google/generative-ai-go/genai"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	ToolCheckInventory = "check_inventory"
	ToolFindByBarcode  = "find_product_by_barcode"
	ToolSalesReport    = "get_sales_report"
)

// Declarations describes the tools offered to the model.
func Declarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        ToolCheckInventory,
			Description: "Get the full inventory list. Use this to find ANY product details like barcode, name, supplier, purchase price, selling price or stock.",
		},
		{
			Name:        ToolFindByBarcode,
			Description: "Get a single product by its barcode.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"barcode": {Type: genai.TypeString, Description: "Product barcode"},
				},
				Required: []string{"barcode"},
			},
		},
		{
			Name:        ToolSalesReport,
			Description: "Get revenue, net profit, discounts, order count and best sellers for a date range.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
					"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
				},
				Required: []string{"start_date", "end_date"},
			},
		},
	}
}

// InventoryLine is the compact product shape handed to the model.
type InventoryLine struct {
	ID            uint            `json:"id"`
	Barcode       string          `json:"barcode"`
	Name          string          `json:"name"`
	Supplier      string          `json:"supplier,omitempty"`
	Stock         int             `json:"stock"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
}

func inventoryLine(p models.Product) InventoryLine {
	line := InventoryLine{
		ID:            p.ID,
		Barcode:       p.Barcode,
		Name:          p.Name,
		Stock:         p.Quantity,
		PurchasePrice: p.PurchasePrice,
		SellingPrice:  p.SellingPrice,
	}
	if p.Supplier != nil {
		line.Supplier = p.Supplier.Name
	}
	return line
}

// Toolbox executes model tool calls against the services. Every tool is
// read-only.
type Toolbox struct {
	products *services.ProductService
	reports  *services.ReportService
	loc      *time.Location
}

func NewToolbox(products *services.ProductService, reports *services.ReportService, loc *time.Location) *Toolbox {
	if loc == nil {
		loc = time.Local
	}
	return &Toolbox{products: products, reports: reports, loc: loc}
}

// Execute runs call and wraps its result, or its failure, as the function
// response the model expects.
func (t *Toolbox) Execute(ctx context.Context, call genai.FunctionCall) genai.FunctionResponse {
	result, err := t.run(ctx, call)
	if err != nil {
		result = map[string]any{"error": toolError(err)}
	}
	return genai.FunctionResponse{Name: call.Name, Response: result}
}

func (t *Toolbox) run(ctx context.Context, call genai.FunctionCall) (map[string]any, error) {
	switch call.Name {
	case ToolCheckInventory:
		products, err := t.products.List(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"inventory": lo.Map(products, func(p models.Product, _ int) InventoryLine {
			return inventoryLine(p)
		})}, nil

	case ToolFindByBarcode:
		barcode, err := stringArg(call.Args, "barcode")
		if err != nil {
			return nil, err
		}
		product, err := t.products.GetByBarcode(ctx, barcode)
		if err != nil {
			return nil, err
		}
		return map[string]any{"product": inventoryLine(*product)}, nil

	case ToolSalesReport:
		start, err := t.dateArg(call.Args, "start_date")
		if err != nil {
			return nil, err
		}
		end, err := t.dateArg(call.Args, "end_date")
		if err != nil {
			return nil, err
		}
		from, to := t.reports.DayRange(start, end)
		summary, err := t.reports.Summary(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"revenue":     summary.Totals.Revenue.String(),
			"net_profit":  summary.Totals.NetProfit.String(),
			"discounts":   summary.Totals.Discounts.String(),
			"sales_count": summary.Totals.OrderCount,
			"units_sold":  summary.Totals.UnitsSold,
			"top_selling": summary.TopSelling,
		}, nil
	}
	return nil, apperror.ErrValidation.Withf("unknown tool %q", call.Name)
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", apperror.ErrValidation.Withf("argument %q is required", name)
	}
	return v, nil
}

func (t *Toolbox) dateArg(args map[string]any, name string) (time.Time, error) {
	v, err := stringArg(args, name)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.ParseInLocation(time.DateOnly, v, t.loc)
	if err != nil {
		return time.Time{}, apperror.ErrValidation.Withf("argument %q must be YYYY-MM-DD", name)
	}
	return d, nil
}

// toolError keeps internal failures out of the model's context.
func toolError(err error) string {
	if appErr, ok := apperror.As(err); ok && appErr.Kind != apperror.KindInternal {
		return appErr.Message
	}
	return "internal error"
}
