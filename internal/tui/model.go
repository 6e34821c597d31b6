package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/pbravo/mimbre-terminal/internal/cache"
	"github.com/pbravo/mimbre-terminal/internal/cart"
	"github.com/pbravo/mimbre-terminal/internal/catalog"
	"github.com/pbravo/mimbre-terminal/internal/checkout"
	"github.com/pbravo/mimbre-terminal/internal/pricing"
	"github.com/pbravo/mimbre-terminal/internal/shop"
)

// ViewState represents the current view in the application.
type ViewState int

const (
	ViewProductList ViewState = iota
	ViewProductDetail
	ViewCart
	ViewPaymentHandoff
	ViewQuoteLink
)

// CatalogCacheKey is the key the shared catalog cache stores the product
// list under. There is a single catalog, so a single key.
const CatalogCacheKey = "products"

// Notices shown inline, in the shop's language.
const (
	noticeEmptyCart  = "Tu carrito está vacío."
	noticeAdded      = "Producto agregado al carrito."
	noticeCleared    = "Carrito vaciado."
	noticePayFailure = "No se pudo iniciar el pago. Intenta nuevamente."
)

// Model is the main Bubble Tea model for the storefront.
type Model struct {
	// Dependencies
	client       *shop.Client
	index        *catalog.Index
	cart         *cart.Store
	payment      *checkout.Payment
	whatsapp     *checkout.WhatsApp
	catalogCache *cache.Cache[string, []shop.Product]

	// View state
	viewState ViewState
	width     int
	height    int
	styles    Styles

	// Product list view
	productList     list.Model
	searchInput     textinput.Model
	showSearch      bool
	sortMode        catalog.SortMode
	loadingProducts bool
	listSpinner     spinner.Model

	// Product detail view
	selected   *shop.Product
	pendingQty int

	// Cart view
	cartSelectedIdx int
	payConfirmForm  *huh.Form
	payConfirmed    bool
	requestingPay   bool

	// Payment handoff
	redirect *checkout.Redirect

	// WhatsApp quote
	quoteURL string

	// Notices and errors
	notice string
	err    error
}

// productItem implements list.Item for products.
type productItem struct {
	product shop.Product
}

func (i productItem) Title() string {
	return i.product.Name
}

func (i productItem) Description() string {
	return pricing.FormatCLP(i.product.Price)
}

func (i productItem) FilterValue() string {
	return i.product.Name
}

// Messages
type (
	productsLoadedMsg struct {
		products []shop.Product
	}
	paymentReadyMsg struct {
		redirect *checkout.Redirect
	}
	errMsg struct {
		err error
	}
)

// NewModel creates a new storefront model. The catalog cache is shared
// across sessions; everything else is per-session.
func NewModel(client *shop.Client, index *catalog.Index, cartStore *cart.Store, whatsapp *checkout.WhatsApp, catalogCache *cache.Cache[string, []shop.Product]) Model {
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorWicker)

	ti := textinput.New()
	ti.Placeholder = "Buscar productos..."
	ti.CharLimit = 50
	ti.Width = 30

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(colorHighlight).
		BorderLeftForeground(colorHighlight)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(colorReed).
		BorderLeftForeground(colorHighlight)

	productList := list.New([]list.Item{}, delegate, 0, 0)
	productList.Title = "🧺 Artesanía en Mimbre"
	productList.SetShowHelp(false)
	productList.SetFilteringEnabled(false)
	productList.Styles.Title = styles.ListTitle

	return Model{
		client:          client,
		index:           index,
		cart:            cartStore,
		payment:         checkout.NewPayment(client),
		whatsapp:        whatsapp,
		catalogCache:    catalogCache,
		viewState:       ViewProductList,
		styles:          styles,
		productList:     productList,
		searchInput:     ti,
		listSpinner:     sp,
		pendingQty:      cart.MinQty,
		loadingProducts: true,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.listSpinner.Tick,
		m.loadProducts(),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.productList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.listSpinner, cmd = m.listSpinner.Update(msg)
		cmds = append(cmds, cmd)

	case productsLoadedMsg:
		m.loadingProducts = false
		m.err = nil
		m.index.Replace(msg.products)
		m.refreshProductList()

	case paymentReadyMsg:
		m.requestingPay = false
		m.redirect = msg.redirect
		m.viewState = ViewPaymentHandoff

	case errMsg:
		m.err = msg.err
		m.loadingProducts = false
		if m.requestingPay {
			m.requestingPay = false
			m.notice = noticePayFailure
		}
	}

	// Non-key messages still reach the confirm form (huh drives its own
	// internal commands).
	if m.viewState == ViewCart && m.payConfirmForm != nil {
		form, cmd := m.payConfirmForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.payConfirmForm = f
		}
		cmds = append(cmds, cmd)
	}

	if m.viewState == ViewProductList && m.showSearch {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.viewState {
	case ViewProductList:
		return m.handleProductListKeys(msg)
	case ViewProductDetail:
		return m.handleProductDetailKeys(msg)
	case ViewCart:
		return m.handleCartKeys(msg)
	case ViewPaymentHandoff:
		return m.handlePaymentHandoffKeys(msg)
	case ViewQuoteLink:
		return m.handleQuoteLinkKeys(msg)
	}

	return m, nil
}

func (m Model) handleProductListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.showSearch {
		switch key {
		case "enter":
			m.showSearch = false
			m.searchInput.Blur()
			m.refreshProductList()
			return m, nil
		case "esc":
			m.showSearch = false
			m.searchInput.Blur()
			m.searchInput.SetValue("")
			m.refreshProductList()
			return m, nil
		}
		// Filter live on every keystroke, the way the grid narrows as
		// the visitor types.
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		m.refreshProductList()
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit

	case "/":
		m.showSearch = true
		m.notice = ""
		m.searchInput.Focus()
		return m, textinput.Blink

	case "s":
		// Cycle none -> price ascending -> price descending.
		m.sortMode = (m.sortMode + 1) % 3
		m.refreshProductList()
		return m, nil

	case "r":
		m.catalogCache.Delete(CatalogCacheKey)
		m.loadingProducts = true
		return m, m.loadProducts()

	case "c":
		m.viewState = ViewCart
		m.cartSelectedIdx = 0
		m.notice = ""
		return m, nil

	case "w":
		m.quoteURL = m.whatsapp.GeneralLink()
		m.viewState = ViewQuoteLink
		return m, nil

	case "enter":
		if item, ok := m.productList.SelectedItem().(productItem); ok {
			p := item.product
			m.selected = &p
			m.pendingQty = cart.MinQty
			m.notice = ""
			m.viewState = ViewProductDetail
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.productList, cmd = m.productList.Update(msg)
	return m, cmd
}

func (m Model) handleProductDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "esc", "backspace", "q":
		m.viewState = ViewProductList
		m.selected = nil
		m.notice = ""
		return m, nil

	case "+", "=", "right", "l":
		if m.pendingQty < cart.MaxQty {
			m.pendingQty++
		}
		return m, nil

	case "-", "left", "h":
		if m.pendingQty > cart.MinQty {
			m.pendingQty--
		}
		return m, nil

	case "a", "enter":
		if m.selected != nil && m.cart.Add(m.selected.ID, m.pendingQty) {
			m.notice = noticeAdded
			m.pendingQty = cart.MinQty
		}
		return m, nil

	case "c":
		m.viewState = ViewCart
		m.cartSelectedIdx = 0
		m.notice = ""
		return m, nil
	}

	return m, nil
}

func (m Model) handleCartKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The confirm form owns input while it is on screen.
	if m.payConfirmForm != nil {
		if msg.String() == "esc" {
			m.payConfirmForm = nil
			return m, nil
		}
		form, cmd := m.payConfirmForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.payConfirmForm = f
			if m.payConfirmForm.State == huh.StateCompleted {
				m.payConfirmForm = nil
				if m.payConfirmed {
					m.requestingPay = true
					return m, m.startPayment()
				}
			}
		}
		return m, cmd
	}

	key := msg.String()

	switch key {
	case "esc", "backspace", "q":
		m.viewState = ViewProductList
		m.notice = ""
		return m, nil

	case "up", "k":
		if m.cartSelectedIdx > 0 {
			m.cartSelectedIdx--
		}
		return m, nil

	case "down", "j":
		if m.cartSelectedIdx < m.cart.Len()-1 {
			m.cartSelectedIdx++
		}
		return m, nil

	case "+", "=":
		if line, ok := m.selectedLine(); ok {
			m.cart.ChangeQty(line.ID, 1)
		}
		return m, nil

	case "-":
		if line, ok := m.selectedLine(); ok {
			m.cart.ChangeQty(line.ID, -1)
		}
		return m, nil

	case "d", "delete":
		if line, ok := m.selectedLine(); ok {
			m.cart.Remove(line.ID)
			if m.cartSelectedIdx >= m.cart.Len() && m.cartSelectedIdx > 0 {
				m.cartSelectedIdx--
			}
		}
		return m, nil

	case "x":
		if !m.cart.IsEmpty() {
			m.cart.Clear()
			m.cartSelectedIdx = 0
			m.notice = noticeCleared
		}
		return m, nil

	case "w":
		url, err := m.whatsapp.QuoteLink(m.cart.Lines())
		if err != nil {
			m.notice = noticeEmptyCart
			return m, nil
		}
		m.quoteURL = url
		m.viewState = ViewQuoteLink
		return m, nil

	case "p":
		if m.requestingPay {
			return m, nil
		}
		if m.cart.IsEmpty() {
			m.notice = noticeEmptyCart
			return m, nil
		}
		m.notice = ""
		m.err = nil
		m.initPayConfirm()
		return m, m.payConfirmForm.Init()
	}

	return m, nil
}

func (m Model) handlePaymentHandoffKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", "q":
		// The payment continues outside the terminal; the cart stays as
		// it was so an abandoned payment can be retried.
		m.payment.Reset()
		m.redirect = nil
		m.viewState = ViewCart
		return m, nil
	}

	return m, nil
}

func (m Model) handleQuoteLinkKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", "q", "backspace":
		m.quoteURL = ""
		if m.cart.IsEmpty() {
			m.viewState = ViewProductList
		} else {
			m.viewState = ViewCart
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) selectedLine() (cart.Line, bool) {
	lines := m.cart.Lines()
	if m.cartSelectedIdx < 0 || m.cartSelectedIdx >= len(lines) {
		return cart.Line{}, false
	}
	return lines[m.cartSelectedIdx], true
}

func (m *Model) initPayConfirm() {
	m.payConfirmed = false
	totals := pricing.Compute(m.cart.Lines())
	m.payConfirmForm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("¿Pagar %s con Webpay?", pricing.FormatCLP(totals.Total))).
				Value(&m.payConfirmed).
				Affirmative("Sí, pagar").
				Negative("Cancelar"),
		),
	).WithShowHelp(true)
}

func (m Model) startPayment() tea.Cmd {
	lines := m.cart.Lines()
	return func() tea.Msg {
		redirect, err := m.payment.Start(context.Background(), lines)
		if err != nil {
			return errMsg{err: fmt.Errorf("starting payment: %w", err)}
		}
		return paymentReadyMsg{redirect: redirect}
	}
}

func (m *Model) refreshProductList() {
	products := m.index.Search(m.searchInput.Value(), m.sortMode)
	items := make([]list.Item, len(products))
	for i, p := range products {
		items[i] = productItem{product: p}
	}
	m.productList.SetItems(items)
}

func (m Model) loadProducts() tea.Cmd {
	return func() tea.Msg {
		if products, ok := m.catalogCache.Get(CatalogCacheKey); ok {
			return productsLoadedMsg{products: products}
		}

		products, err := m.client.GetProducts(context.Background())
		if err != nil {
			return errMsg{err: err}
		}

		m.catalogCache.Set(CatalogCacheKey, products)
		return productsLoadedMsg{products: products}
	}
}

func (m Model) sortLabel() string {
	switch m.sortMode {
	case catalog.SortPriceAsc:
		return "precio ↑"
	case catalog.SortPriceDesc:
		return "precio ↓"
	default:
		return "catálogo"
	}
}

// View renders the current view.
func (m Model) View() string {
	if m.width == 0 {
		return "Cargando..."
	}

	var content string

	switch m.viewState {
	case ViewProductList:
		content = m.viewProductList()
	case ViewProductDetail:
		content = m.viewProductDetail()
	case ViewCart:
		content = m.viewCart()
	case ViewPaymentHandoff:
		content = m.viewPaymentHandoff()
	case ViewQuoteLink:
		content = m.viewQuoteLink()
	}

	return m.styles.App.Render(content)
}

func (m Model) viewProductList() string {
	var sb strings.Builder

	header := m.styles.HeaderTitle.Render("🧺 Artesanía en Mimbre")
	if m.searchInput.Value() != "" {
		header += m.styles.Highlight.Render(fmt.Sprintf(" [%s]", m.searchInput.Value()))
	}
	sb.WriteString(m.styles.Header.Render(header))
	sb.WriteString("\n")

	if m.showSearch {
		sb.WriteString("Buscar: ")
		sb.WriteString(m.searchInput.View())
		sb.WriteString("\n\n")
	}

	if m.loadingProducts {
		sb.WriteString(m.listSpinner.View())
		sb.WriteString(" Cargando productos...")
	} else if m.err != nil {
		sb.WriteString(m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)))
	} else {
		sb.WriteString(m.productList.View())
	}

	cartInfo := ""
	if m.cart.Count() > 0 {
		totals := pricing.Compute(m.cart.Lines())
		cartInfo = fmt.Sprintf(" • 🛒 %d (%s)", m.cart.Count(), pricing.FormatCLP(totals.Subtotal))
	}
	help := fmt.Sprintf("/ buscar • s orden: %s • r recargar • enter ver • c carrito • w whatsapp • q salir%s", m.sortLabel(), cartInfo)
	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render(help))

	return sb.String()
}

func (m Model) viewProductDetail() string {
	if m.selected == nil {
		return "Sin producto seleccionado"
	}

	var sb strings.Builder
	p := m.selected

	sb.WriteString(m.styles.ProductName.Render(p.Name))
	sb.WriteString("\n\n")

	sb.WriteString(m.styles.ProductPrice.Render(pricing.FormatCLP(p.Price)))
	sb.WriteString("\n")

	if desc := StripHTML(p.Desc); desc != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.ProductDescription.Render(desc))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Subtle.Render("Cantidad: "))
	sb.WriteString(m.styles.Highlight.Render(fmt.Sprintf("− %d +", m.pendingQty)))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Subtle.Render(fmt.Sprintf("Total: %s", pricing.FormatCLP(p.Price*m.pendingQty))))
	sb.WriteString("\n")

	if m.notice != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Success.Render(m.notice))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render("+/- cantidad • a/enter agregar • c carrito • esc volver"))

	return m.styles.Box.Render(sb.String())
}

func (m Model) viewCart() string {
	var sb strings.Builder

	sb.WriteString(m.styles.HeaderTitle.Render("🛒 Tu Carrito"))
	sb.WriteString("\n\n")

	if m.cart.IsEmpty() {
		sb.WriteString(m.styles.Subtle.Render(noticeEmptyCart))
		sb.WriteString("\n\n")
		if m.notice != "" && m.notice != noticeEmptyCart {
			sb.WriteString(m.styles.Success.Render(m.notice))
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.styles.HelpBar.Render("esc volver a productos"))
		return m.styles.Box.Render(sb.String())
	}

	lines := m.cart.Lines()
	for i, line := range lines {
		prefix := "  "
		row := fmt.Sprintf("%s x%d (%s c/u) = %s",
			line.Name, line.Qty, pricing.FormatCLP(line.Price), pricing.FormatCLP(line.Total()))
		if i == m.cartSelectedIdx {
			sb.WriteString(m.styles.Highlight.Render("▸ " + row))
		} else {
			sb.WriteString(prefix + row)
		}
		sb.WriteString("\n")
	}

	totals := pricing.Compute(lines)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Subtotal: %s\n", pricing.FormatCLP(totals.Subtotal)))
	if totals.Shipping == 0 {
		sb.WriteString(m.styles.FreeShipping.Render("Envío: ¡Gratis! 🎉"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(fmt.Sprintf("Envío: %s\n", pricing.FormatCLP(totals.Shipping)))
		missing := pricing.FreeShippingMin - totals.Subtotal
		sb.WriteString(m.styles.Subtle.Render(
			fmt.Sprintf("Te faltan %s para envío gratis", pricing.FormatCLP(missing))))
		sb.WriteString("\n")
	}
	sb.WriteString(m.styles.CartTotal.Render(fmt.Sprintf("Total: %s", pricing.FormatCLP(totals.Total))))
	sb.WriteString("\n")

	if m.payConfirmForm != nil {
		sb.WriteString("\n")
		sb.WriteString(m.payConfirmForm.View())
		return m.styles.Box.Render(sb.String())
	}

	if m.requestingPay {
		sb.WriteString("\n")
		sb.WriteString(m.listSpinner.View())
		sb.WriteString(" Contactando a Webpay...")
		return m.styles.Box.Render(sb.String())
	}

	if m.notice != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Highlight.Render(m.notice))
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render("↑/↓ elegir • +/- cantidad • d quitar • x vaciar • p pagar • w cotizar • esc volver"))

	return m.styles.Box.Render(sb.String())
}

func (m Model) viewPaymentHandoff() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Success.Render("✓ Sesión de pago creada"))
	sb.WriteString("\n\n")

	if m.redirect != nil {
		sb.WriteString("Abre este enlace en tu navegador para completar el pago:\n\n")
		sb.WriteString(m.styles.Highlight.Render("  " + m.redirect.URL))
		sb.WriteString("\n\n")
		sb.WriteString(m.styles.Subtle.Render("El portal de pago espera un POST con token_ws:"))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  token_ws = %s\n", m.redirect.Token))
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Subtle.Render("Tu carrito se conserva hasta que el pago se confirme."))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.HelpBar.Render("enter/esc volver al carrito"))

	return m.styles.Box.Render(sb.String())
}

func (m Model) viewQuoteLink() string {
	var sb strings.Builder

	sb.WriteString(m.styles.HeaderTitle.Render("💬 Cotiza por WhatsApp"))
	sb.WriteString("\n\n")
	sb.WriteString("Abre este enlace para enviarnos tu consulta:\n\n")
	sb.WriteString(m.styles.Highlight.Render("  " + m.quoteURL))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.HelpBar.Render("enter/esc volver"))

	return m.styles.Box.Render(sb.String())
}

// GetViewState returns the current view state (for testing).
func (m Model) GetViewState() ViewState {
	return m.viewState
}

// GetSelectedProduct returns the product open in the detail view (for testing).
func (m Model) GetSelectedProduct() *shop.Product {
	return m.selected
}
