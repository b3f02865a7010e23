package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/api"
)

// SearchAddress answers GET /api/address/{query} with simulated matches.
func (h *Handler) SearchAddress(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.addresses.Search(r.Context(), r.PathValue("query"))
	if err != nil {
		writeInternal(w, r, "Search address", err)
		return
	}

	var e jx.Encoder
	api.EncodeAddresses(&e, addrs)
	writeJSON(w, http.StatusOK, &e)
}
