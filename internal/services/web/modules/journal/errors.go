package journal

import apperrors "github.com/doosr/doosr/internal/platform/errors"

var errInvalidParam = apperrors.New(apperrors.KindInvalidInput, "errors.invalid_input", "invalid request parameter")
