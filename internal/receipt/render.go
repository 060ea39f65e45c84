package receipt

import (
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/zombor/receipt-insights/internal/scanning"
)

// ViewState is one of the three renderable result states
type ViewState string

const (
	ViewEmpty     ViewState = "empty"
	ViewLoading   ViewState = "loading"
	ViewPopulated ViewState = "populated"
)

// ItemView is one rendered line item
type ItemView struct {
	Name     string
	Price    string
	Quantity string // "×2"; empty when the receipt gave no quantity
}

// View is everything the result panel needs
type View struct {
	State    ViewState
	Merchant string
	Date     string
	Total    string
	Category string
	Items    []ItemView
	Subtotal string // empty when absent
	Tax      string // empty when absent
}

// BuildView maps the current record and analyzing flag to a view. It has no side effects.
func BuildView(record *scanning.ReceiptRecord, analyzing bool) View {
	if analyzing {
		return View{State: ViewLoading}
	}
	if record == nil {
		return View{State: ViewEmpty}
	}

	v := View{
		State:    ViewPopulated,
		Merchant: record.Merchant,
		Date:     record.Date,
		Total:    formatMoney(record.Total),
		Category: record.Category,
		Items:    make([]ItemView, 0, len(record.Items)),
	}
	for _, item := range record.Items {
		iv := ItemView{Name: item.Name, Price: formatMoney(item.Price)}
		if item.Quantity != nil {
			iv.Quantity = "×" + strconv.Itoa(*item.Quantity)
		}
		v.Items = append(v.Items, iv)
	}
	if record.Subtotal != nil {
		v.Subtotal = formatMoney(*record.Subtotal)
	}
	if record.Tax != nil {
		v.Tax = formatMoney(*record.Tax)
	}
	return v
}

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// PageData is passed to the page template
type PageData struct {
	User         string
	AuthEnabled  bool
	SelectedFile string
	Result       View
}

// Renderer renders pages and fragments from the embedded templates
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// RenderResult writes the result panel fragment
func (r *Renderer) RenderResult(w io.Writer, v View) error {
	return r.templates.ExecuteTemplate(w, "result", v)
}

// RenderPage writes the main page
func (r *Renderer) RenderPage(w io.Writer, data PageData) error {
	return r.templates.ExecuteTemplate(w, "page", data)
}

// RenderSignIn writes the sign-in page
func (r *Renderer) RenderSignIn(w io.Writer, failed bool) error {
	return r.templates.ExecuteTemplate(w, "signin", struct{ Failed bool }{failed})
}
