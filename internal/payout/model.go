// Package payout manages the single set of payment instructions shown to
// customers who fund their account off-platform.
package payout

import "time"

// Instructions are the Zelle, CashApp and Chime details customers pay into.
type Instructions struct {
	ZelleEmail         string    `db:"zelle_email" json:"zelle_email"`
	ZellePhone         string    `db:"zelle_phone" json:"zelle_phone"`
	CashAppEmail       string    `db:"cashapp_email" json:"cashapp_email"`
	CashAppUsername    string    `db:"cashapp_username" json:"cashapp_username"`
	ChimeEmail         string    `db:"chime_email" json:"chime_email"`
	ChimePhone         string    `db:"chime_phone" json:"chime_phone"`
	ChimeAccountName   string    `db:"chime_account_name" json:"chime_account_name"`
	ChimeAccountNumber string    `db:"chime_account_number" json:"chime_account_number"`
	ChimeRoutingNumber string    `db:"chime_routing_number" json:"chime_routing_number"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
