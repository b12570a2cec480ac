package handlers

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
)

// BindNestedOrFlat binds the request body to obj, accepting both the wrapped
// form ({"credit_note": {...}}) and the bare form ({...}). The body is restored
// afterwards so it can be read again.
func BindNestedOrFlat(c *gin.Context, key string, obj interface{}) error {
	var bodyBytes []byte
	if c.Request.Body != nil {
		bodyBytes, _ = io.ReadAll(c.Request.Body)
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(bodyBytes, &wrapped); err == nil {
		if val, ok := wrapped[key]; ok {
			return json.Unmarshal(val, obj)
		}
	}

	return json.Unmarshal(bodyBytes, obj)
}
