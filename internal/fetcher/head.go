package fetcher

import (
	"context"
	"net/http"
	"strconv"
)

// Preflight holds the HEAD response hints used by the backfill ladder.
// Size is -1 when the server did not report a usable Content-Length.
type Preflight struct {
	ContentType string
	Size        int64
}

// Head issues a HEAD request with the short preflight timeouts. Errors
// are swallowed: the ladder treats a failed preflight as "no hints" and
// proceeds to the stage-1 GET.
func (c *Client) Head(ctx context.Context, rawURL string) Preflight {
	none := Preflight{Size: -1}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.HeadReadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return none
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, doErr := c.headClient.Do(req)
	if doErr != nil {
		return none
	}
	defer resp.Body.Close()

	pf := Preflight{
		ContentType: contentTypeOf(resp.Header.Get("Content-Type")),
		Size:        -1,
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if size, parseErr := strconv.ParseInt(cl, 10, 64); parseErr == nil && size >= 0 {
			pf.Size = size
		}
	}

	return pf
}
