package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/db"
	"github.com/squaresclub/gatedb/internal/models"
	svc "github.com/squaresclub/gatedb/internal/services"
)

// POST /pay
// Stages a cart: payer details plus catalog quantities (count_<slug>,
// price_<slug> form fields). Responds with the redirect payload the
// gateway integration needs: transaction id, nonce, reference number,
// total, and the receipt callback path.
func PayStart(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	personName := strings.TrimSpace(r.FormValue("person_name"))
	if personName == "" {
		writeMsg(w, http.StatusBadRequest, "person_name is required")
		return
	}
	email, ok := svc.NormEmail(r.FormValue("email"))
	if !ok || email == "" {
		writeMsg(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	notes := strings.TrimSpace(r.FormValue("notes"))

	var products []models.Product
	if err := db.Conn().Where("active = ?", true).
		Joins("JOIN product_categories ON product_categories.slug = products.category_slug").
		Order("product_categories.rank, products.rank").
		Find(&products).Error; err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}

	type pendingItem struct {
		product models.Product
		count   int
		price   decimal.Decimal
	}
	var pending []pendingItem
	total := decimal.Zero
	for _, product := range products {
		countRaw := r.FormValue("count_" + product.Slug)
		if countRaw == "" || countRaw == "0" {
			continue
		}
		count, err := strconv.Atoi(countRaw)
		if err != nil || count < 0 {
			writeMsg(w, http.StatusBadRequest,
				fmt.Sprintf("count for %q is not a valid quantity", product.Slug))
			return
		}
		if count == 0 {
			continue
		}

		price := product.Low
		if fixed := product.FixedPrice(); fixed == nil {
			parsed, err := decimal.NewFromString(r.FormValue("price_" + product.Slug))
			if err != nil {
				writeMsg(w, http.StatusBadRequest,
					fmt.Sprintf("price for %q is not a valid amount", product.Slug))
				return
			}
			if parsed.LessThan(product.Low) || parsed.GreaterThan(product.High) {
				writeMsg(w, http.StatusBadRequest,
					fmt.Sprintf("price for %q must be between %s and %s", product.Slug,
						product.Low.StringFixed(2), product.High.StringFixed(2)))
				return
			}
			price = parsed
		}
		pending = append(pending, pendingItem{product: product, count: count, price: price})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(count))))
	}
	if len(pending) == 0 {
		writeMsg(w, http.StatusBadRequest, "cart is empty")
		return
	}

	txn := models.Transaction{
		Nonce:      models.NewNonce(),
		RefNumber:  uuid.NewString(),
		Time:       time.Now(),
		PersonName: personName,
		Email:      email,
		Notes:      notes,
		Stage:      models.StageCart,
	}
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		for _, p := range pending {
			label := p.product.Label
			if p.count != 1 {
				label += fmt.Sprintf(" (%dx$%s)", p.count, p.price.StringFixed(2))
			}
			slug := p.product.Slug
			item := models.LineItem{
				TransactionID: &txn.ID,
				Kind:          models.LineItemKindProduct,
				Amount:        p.price.Mul(decimal.NewFromInt(int64(p.count))),
				AccountName:   p.product.AccountName,
				Label:         label,
				ProductSlug:   &slug,
				Count:         p.count,
				PriceEach:     p.price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction": txn.ID,
		"nonce":       txn.Nonce,
		"ref_number":  txn.RefNumber,
		"amount":      total.StringFixed(2),
		"receipt":     fmt.Sprintf("/pay/cybersource/%d/%s", txn.ID, txn.Nonce),
	})
}

// POST /pay/cybersource/{id}/{nonce}
// The asynchronous settlement callback. No JSON body: the gateway
// redirects the payer's browser here, so the response is a redirect to
// either the receipt or the error page.
func PayPostCybersource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		http.Redirect(w, r, "/pay/error", http.StatusSeeOther)
		return
	}
	nonce := chi.URLParam(r, "nonce")
	_ = r.ParseForm()

	out := svc.ProcessGatewayCallback(db.Conn(), uint(id), nonce, r.PostForm)
	if !out.OK {
		http.Redirect(w, r, "/pay/error", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/pay/receipt/%d/%s", id, nonce), http.StatusSeeOther)
}

// GET /pay/error
func PayError(w http.ResponseWriter, _ *http.Request) {
	writeMsg(w, http.StatusOK,
		"There was a problem processing your payment. The club has a record of it and will follow up.")
}

// GET /pay/receipt/{id}/{nonce}
// Read-only projection of the transaction. A wrong nonce is a 404, not
// a hint that the transaction exists.
func PayReceipt(w http.ResponseWriter, r *http.Request) {
	txn, ok := loadTransaction(w, r)
	if !ok {
		return
	}
	var items []models.LineItem
	if err := db.Conn().Where("transaction_id = ?", txn.ID).Order("id").
		Find(&items).Error; err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}

	type itemRow struct {
		Label  string `json:"label"`
		Amount string `json:"amount"`
	}
	rows := make([]itemRow, 0, len(items))
	net := decimal.Zero
	for _, item := range items {
		rows = append(rows, itemRow{Label: item.Label, Amount: item.Amount.StringFixed(2)})
		net = net.Add(item.Amount)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": txn.ID,
		"person_name": txn.PersonName,
		"stage":       models.StageLabel(txn.Stage),
		"paid":        txn.Stage == models.StagePaid,
		"items":       rows,
		"net":         net.StringFixed(2),
	})
}

// GET /pay/receipt/{id}/{nonce}/qr.png
// QR of the shareable receipt URL, for printing with door-sale goods.
func ReceiptQR(w http.ResponseWriter, r *http.Request) {
	txn, ok := loadTransaction(w, r)
	if !ok {
		return
	}

	// Encode a URL so scanning opens the receipt directly
	url := fmt.Sprintf("http://%s/pay/receipt/%d/%s", r.Host, txn.ID, txn.Nonce)

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func loadTransaction(w http.ResponseWriter, r *http.Request) (*models.Transaction, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	nonce := chi.URLParam(r, "nonce")
	var txn models.Transaction
	if err := db.Conn().Where("id = ? AND nonce = ?", uint(id), nonce).
		First(&txn).Error; err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	return &txn, true
}
