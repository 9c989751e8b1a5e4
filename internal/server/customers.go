package server

import (
	"net/http"

	"mutari/pkg/types"
)

// handleEnsureCustomer creates the caller's customer profile on first
// sign-in, or claims the guest profile filed under the same email.
func (s *Service) handleEnsureCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := identityFrom(ctx)
	if !ok || identity.Role != types.RoleCustomer {
		s.writeError(w, http.StatusForbidden, "forbidden", msgForbidden)
		return
	}
	if identity.Email == "" {
		s.writeError(w, http.StatusBadRequest, "missing_email", "Contul nu are o adresă de email confirmată.")
		return
	}

	payload := new(types.EnsureCustomerPayload)
	if r.ContentLength != 0 && !s.decodeJSON(w, r, payload) {
		return
	}

	customer, err := s.customers.EnsureCustomer(ctx, identity, payload)
	if err != nil {
		s.writeStoreError(w, err, "failed to ensure customer")
		return
	}

	s.writeData(w, http.StatusOK, customer)
}
