package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

const maxBodyBytes = 64 << 10

// DecodeJSON decodes a single JSON value from the request body into dst.
// Oversized bodies and trailing data are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))

	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidJSON(err)
	}

	// Disallow trailing data: {}{}
	if err := dec.Decode(&struct{}{}); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.ErrInvalidJSON(err)
	}
	return domain.ErrInvalidJSON(errors.New("multiple JSON values"))
}
