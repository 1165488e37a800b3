package validators

import (
	"net/http"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/go-playground/form/v4"
)

var formDecoder = newFormDecoder()

func newFormDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.SetTagName("form")
	return d
}

// DecodeForm binds the urlencoded body of r onto dest using its form tags. Rules are
// left to the caller's Validate so each screen keeps its own messages.
func DecodeForm(r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form submission")
	}
	if err := formDecoder.Decode(dest, r.PostForm); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form submission")
	}
	return nil
}
