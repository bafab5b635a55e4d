// Package api implements the request/response boundary (spec §4.1, §6):
// session creation, status, wallet claim, and health.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/shadowrelay/relayd/internal/enclave"
	"github.com/shadowrelay/relayd/internal/session"
)

// maxBodyBytes bounds request decoding so a malformed client cannot hold a
// handler goroutine on an oversized body.
const maxBodyBytes = 1 << 16

// GasFunder is the chain-facing surface the request-wallet handler needs
// for its best-effort native-token pre-fund (spec §4.1 step 5).
type GasFunder interface {
	SubmitGasFunding(ctx context.Context, to common.Address, amount *big.Int) (txHash string, err error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	store       *session.Store
	enclave     *enclave.Enclave
	gasFunder   GasFunder
	gasAmount   *big.Int
	corsOrigins []string
}

// New returns a Server wired to its dependencies. gasFunder may be nil, in
// which case the pre-fund step is skipped entirely (useful for tests and
// for chains with no native gas requirement).
func New(store *session.Store, enc *enclave.Enclave, gasFunder GasFunder, gasAmount *big.Int, corsOriginsCSV string) *Server {
	var origins []string
	for _, o := range strings.Split(corsOriginsCSV, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{store: store, enclave: enc, gasFunder: gasFunder, gasAmount: gasAmount, corsOrigins: origins}
}

// Handler returns the fully wired http.Handler for the four endpoints.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/request-wallet", s.handleRequestWallet).Methods(http.MethodPost)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/claim-wallet", s.handleClaimWallet).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type requestWalletBody struct {
	Message        string `json:"message"`
	Signature      string `json:"signature"`
	ExpectedAmount string `json:"expectedAmount"`
}

type requestWalletResponse struct {
	SessionToken string `json:"sessionToken"`
	NewAddress   string `json:"newAddress"`
}

func (s *Server) handleRequestWallet(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body requestWalletBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: decode body: %v", ErrInvalidInput, err))
		return
	}
	if body.Message == "" || body.Signature == "" || body.ExpectedAmount == "" {
		writeError(w, fmt.Errorf("%w: message, signature, and expectedAmount are required", ErrInvalidInput))
		return
	}

	expectedAmount, ok := new(big.Int).SetString(body.ExpectedAmount, 10)
	if !ok || expectedAmount.Sign() <= 0 {
		writeError(w, fmt.Errorf("%w: expectedAmount must be a positive decimal integer", ErrInvalidInput))
		return
	}

	signer, err := recoverSigner(body.Message, body.Signature)
	if err != nil {
		writeError(w, err)
		return
	}

	issued, err := s.enclave.Issue()
	if err != nil {
		log.Error("api: key issuance failed", "err", err)
		writeError(w, fmt.Errorf("issue key: %w", err))
		return
	}

	rec := s.store.Create(signer.Hex(), expectedAmount, issued.Address.Hex(), issued.EncryptedKeyForUser, issued.AttestationReport)

	s.prefundGasBestEffort(r.Context(), issued.Address)

	writeJSON(w, http.StatusCreated, requestWalletResponse{
		SessionToken: rec.SessionToken,
		NewAddress:   rec.NewAddress,
	})
}

// prefundGasBestEffort sends the compiled-in gas constant to addr. Failure
// is logged and never surfaced to the caller — the session remains valid
// regardless (spec §4.1 step 5).
func (s *Server) prefundGasBestEffort(ctx context.Context, addr common.Address) {
	if s.gasFunder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.gasFunder.SubmitGasFunding(ctx, addr, s.gasAmount); err != nil {
		log.Warn("api: gas pre-fund failed, session remains valid", "addr", addr.Hex(), "err", err)
	}
}

type statusResponse struct {
	SessionToken      string `json:"sessionToken"`
	UserAddress       string `json:"userAddress"`
	ExpectedAmount    string `json:"expectedAmount"`
	Status            string `json:"status"`
	NewAddress        string `json:"newAddress"`
	AttestationReport string `json:"attestationReport"`
	DepositTxHash     string `json:"depositTxHash,omitempty"`
	DepositID         string `json:"depositId,omitempty"`
	WithdrawTxHash    string `json:"withdrawTxHash,omitempty"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("sessionToken")
	if token == "" {
		writeError(w, fmt.Errorf("%w: sessionToken is required", ErrInvalidInput))
		return
	}

	rec, err := s.store.GetForRead(token)
	if err != nil {
		writeError(w, err)
		return
	}
	safe := rec.WithoutKeyMaterial()

	resp := statusResponse{
		SessionToken:      safe.SessionToken,
		UserAddress:       safe.UserAddress,
		ExpectedAmount:    safe.ExpectedAmount.String(),
		Status:            string(safe.Status),
		NewAddress:        safe.NewAddress,
		AttestationReport: safe.AttestationReport,
		DepositTxHash:     safe.DepositTxHash,
		WithdrawTxHash:    safe.WithdrawTxHash,
		CreatedAt:         safe.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:         safe.UpdatedAt.Format(time.RFC3339Nano),
	}
	if safe.DepositID != nil {
		resp.DepositID = safe.DepositID.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

type claimWalletResponse struct {
	NewAddress          string `json:"newAddress"`
	EncryptedKeyForUser string `json:"encryptedKeyForUser"`
	AttestationReport   string `json:"attestationReport"`
}

func (s *Server) handleClaimWallet(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("sessionToken")
	if token == "" {
		writeError(w, fmt.Errorf("%w: sessionToken is required", ErrInvalidInput))
		return
	}

	rec, err := s.store.GetForRead(token)
	if err != nil {
		writeError(w, err)
		return
	}

	if rec.NewAddress == "" || rec.EncryptedKeyForUser == "" || rec.AttestationReport == "" {
		writeError(w, fmt.Errorf("%w: wallet fields not yet populated", session.ErrInvalidState))
		return
	}

	writeJSON(w, http.StatusOK, claimWalletResponse{
		NewAddress:          rec.NewAddress,
		EncryptedKeyForUser: rec.EncryptedKeyForUser,
		AttestationReport:   rec.AttestationReport,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("api: failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		log.Error("api: request failed", "status", status, "err", err)
	} else {
		log.Warn("api: request rejected", "status", status, "err", err)
	}

	msg := "internal error"
	if status < 500 {
		msg = errorMessage(err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorMessage extracts a client-safe message for 4xx responses without
// leaking internal error chains.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return "invalid signature"
	case errors.Is(err, session.ErrNotFound):
		return "session not found"
	case errors.Is(err, session.ErrInvalidState):
		return "session is not in a claimable state"
	default:
		return "invalid request"
	}
}
