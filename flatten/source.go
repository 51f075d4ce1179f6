package flatten

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/ianaindex"
)

// validateCharset returns canonical IANA name for the requested source
// character set. Empty name means sources are UTF-8 and no decoding is
// necessary.
func validateCharset(name string) (string, error) {
	if len(name) == 0 {
		return "", nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return "", err
	}
	if enc == nil {
		return "", fmt.Errorf("character set %q is not supported", name)
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return "", err
	}
	return canonical, nil
}

// readSource reads complete source text converting it from charset when
// specified.
func readSource(r io.Reader, cs string, log *zap.Logger) (string, error) {
	if len(cs) > 0 {
		cr, err := charset.NewReaderLabel(cs, r)
		if err != nil {
			return "", fmt.Errorf("unable to decode source from %s: %w", cs, err)
		}
		log.Debug("Decoding source", zap.String("charset", cs))
		r = cr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
