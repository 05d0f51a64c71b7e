package invoices

import apperrors "github.com/doosr/doosr/internal/platform/errors"

var (
	errInvalidAmount = apperrors.New(apperrors.KindInvalidInput, "web.invoices.invalid_amount", "amount is not a valid decimal")
	errInvalidAction = apperrors.New(apperrors.KindInvalidInput, "errors.invalid_input", "unknown invoice action")
	errInvalidParam  = apperrors.New(apperrors.KindInvalidInput, "errors.invalid_input", "invalid request parameter")
)
