package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-registration/internal/booking"
	"github.com/iliyamo/course-registration/internal/storage"
)

// DefaultMaxProofBytes is the upload ceiling for payment proof images
// when no limit is configured (5 MiB).
const DefaultMaxProofBytes = 5 << 20

// allowedProofTypes are the accepted image content types, checked
// against the sniffed bytes rather than the client-declared header.
var allowedProofTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ProofHandler accepts payment proof uploads.  The file lands in the
// proof store (external blob storage in production, local disk in
// development); only the resulting reference is recorded on the order.
type ProofHandler struct {
	Lifecycle *booking.OrderLifecycle
	Proofs    storage.ProofStore
	MaxBytes  int64
}

// NewProofHandler constructs a ProofHandler.  maxBytes caps upload
// size; zero or negative falls back to DefaultMaxProofBytes.
func NewProofHandler(lifecycle *booking.OrderLifecycle, proofs storage.ProofStore, maxBytes int64) *ProofHandler {
	if lifecycle == nil || proofs == nil {
		panic("nil dependency passed to NewProofHandler")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxProofBytes
	}
	return &ProofHandler{Lifecycle: lifecycle, Proofs: proofs, MaxBytes: maxBytes}
}

// SubmitProof handles POST /v1/orders/:id/payment-proof.  The multipart
// field "file" must be a JPEG, PNG or WebP image within MaxBytes.  On
// success the order moves to PAYMENT_SUBMITTED and the stored reference
// is returned.  Submitting after the payment deadline returns 410 and
// cancels the order.
func (h *ProofHandler) SubmitProof(c echo.Context) error {
	parentID, err := getParentID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	if fh.Size > h.MaxBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file exceeds the upload size limit"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read file"})
	}
	defer src.Close()

	// Sniff the real content type from the first bytes; the declared
	// Content-Type header is client-controlled.
	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read file"})
	}
	contentType := http.DetectContentType(head[:n])
	if !allowedProofTypes[contentType] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only JPEG, PNG or WebP images are accepted"})
	}

	body := io.MultiReader(bytes.NewReader(head[:n]), src)
	url, err := h.Proofs.Save(c.Request().Context(), orderID, contentType, body)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store proof"})
	}

	order, err := h.Lifecycle.SubmitProof(c.Request().Context(), orderID, parentID, url)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, booking.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, booking.ErrOrderExpired):
			return c.JSON(http.StatusGone, echo.Map{"error": "payment deadline has passed; order cancelled"})
		case errors.Is(err, booking.ErrInvalidStateTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "order is not awaiting payment"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record proof"})
		}
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}
