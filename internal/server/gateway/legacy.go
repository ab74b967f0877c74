package gateway

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"

	"github.com/akyaiy/verusgate/internal/server/allowlist"
)

// legacyBlockMethod used to accept a bare block height through the old JS server,
// which passed it to the node as a string. Clients still rely on that.
const legacyBlockMethod = "getblock"

// rewriteLegacyParams quotes an integer height given as the first getblock parameter.
// It returns params untouched in every other case. Remove together with its call
// in Route once clients send heights as strings.
func rewriteLegacyParams(method string, params []json.RawMessage) []json.RawMessage {
	if method != legacyBlockMethod || len(params) == 0 {
		return params
	}
	if !allowlist.IsInteger(params[0]) {
		return params
	}
	height, err := strconv.ParseInt(string(bytes.TrimSpace(params[0])), 10, 64)
	if err != nil {
		return params
	}
	out := slices.Clone(params)
	out[0] = json.RawMessage(strconv.Quote(strconv.FormatInt(height, 10)))
	return out
}
