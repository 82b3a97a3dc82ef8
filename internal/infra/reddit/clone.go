package reddit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// cloneRequest produces a structural copy of req that is safe to send again:
// same method, URL, protocol version and headers, with a freshly readable
// body. The transport consumes the body of a sent request, so the copy is
// rebuilt from GetBody when the request carries one rather than re-reading
// the spent stream.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())

	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("clone request body: %w", err)
		}
		clone.Body = body
		return clone, nil
	}

	// No GetBody hook: buffer whatever is left of the original body and give
	// both requests their own readers over it.
	buf, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("clone request body: %w", err)
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(buf))
	clone.Body = io.NopCloser(bytes.NewReader(buf))
	clone.ContentLength = int64(len(buf))
	return clone, nil
}
