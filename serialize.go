package hxpage

import (
	"errors"

	"github.com/pthm/hxpage/lib/encoding"
)

// serializePageContextClientSide encodes the passToClient fields of pc, plus
// the page id and is404, as JSON.
func serializePageContextClientSide(pc *pageContext) (string, error) {
	keys := []string{"_pageId"}
	if pc.is404 != nil {
		keys = append(keys, "is404")
	}
	if pc.files != nil {
		keys = append(keys, pc.files.passToClient...)
	}

	fields := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := pc.lookup(k); ok {
			fields[k] = v
		}
	}
	out, err := encoding.MarshalPageContext(fields)
	if err != nil {
		var se *encoding.SerializeError
		if errors.As(err, &se) {
			return "", &UsageError{
				Msg: "pageContext." + se.Key + " cannot be serialized and thus cannot be passed to the client; remove " + quote(se.Key) + " from passToClient or make it JSON serializable: " + se.Err.Error(),
				Err: err,
			}
		}
		return "", err
	}
	return out, nil
}
