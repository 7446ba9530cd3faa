package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rahulpdmehta/hungerwood-core/api/responses"
	"github.com/rahulpdmehta/hungerwood-core/internal/wallet"
	"github.com/rahulpdmehta/hungerwood-core/pkg/config"
	pkgerrors "github.com/rahulpdmehta/hungerwood-core/pkg/errors"
	"github.com/rahulpdmehta/hungerwood-core/pkg/logger"
	"github.com/rahulpdmehta/hungerwood-core/pkg/orderapi"
)

// WalletFetch returns the caller's wallet balance from the backend.
func WalletFetch(client *orderapi.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := client.GetWallet(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// WalletSummary returns balance plus referral information.
func WalletSummary(client *orderapi.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := client.GetWalletSummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

type walletApplicabilityResponse struct {
	Balance       int64 `json:"balance"`
	OrderTotal    int64 `json:"orderTotal"`
	MaxUsable     int64 `json:"maxUsable"`
	DefaultEnable int64 `json:"defaultEnable"`
	StepAmount    int64 `json:"stepAmount"`
}

// WalletApplicability computes how much of the wallet may cover an order of
// the given total, together with the adjustment constants the storefront
// needs to render the slider.
func WalletApplicability(client *orderapi.Client, billing config.BillingConfig, walletCfg config.WalletConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("orderTotal"))
		orderTotal, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || orderTotal < 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderTotal must be a non-negative integer"))
			return
		}

		out, err := client.GetWallet(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		maxUsable := wallet.MaxUsable(out.Balance, orderTotal, billing.MaxWalletUsagePercent)
		responses.WriteSuccess(w, walletApplicabilityResponse{
			Balance:       out.Balance,
			OrderTotal:    orderTotal,
			MaxUsable:     maxUsable,
			DefaultEnable: wallet.Clamp(walletCfg.DefaultEnable, maxUsable),
			StepAmount:    walletCfg.StepAmount,
		})
	}
}
