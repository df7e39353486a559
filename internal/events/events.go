package events

import "github.com/squaresclub/gatedb/internal/models"

// OnReceipt is called after a transaction reaches the paid stage.
// services will call this if it's set; delivery is best-effort.
var OnReceipt func(txn models.Transaction, recipients []string, body string)
