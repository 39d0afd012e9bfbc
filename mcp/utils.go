package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	x402 "github.com/bankofai/x402/go"
)

// AttachPaymentToMeta attaches payment payload to request params
func AttachPaymentToMeta(params map[string]interface{}, payload x402.PaymentPayload) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range params {
		result[k] = v
	}

	meta := make(map[string]interface{})
	if existingMeta, ok := result["_meta"].(map[string]interface{}); ok {
		for k, v := range existingMeta {
			meta[k] = v
		}
	}

	meta[MCP_PAYMENT_META_KEY] = payload
	result["_meta"] = meta

	return result
}

// ExtractPaymentResponseFromMeta extracts settlement response from MCP result _meta
func ExtractPaymentResponseFromMeta(result MCPToolResult) (*x402.SettleResponse, error) {
	if result.Meta == nil {
		return nil, nil
	}

	responseData, ok := result.Meta[MCP_PAYMENT_RESPONSE_META_KEY]
	if !ok {
		return nil, nil
	}

	if settleResp, ok := responseData.(x402.SettleResponse); ok {
		return &settleResp, nil
	}

	responseBytes, err := json.Marshal(responseData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}

	var response x402.SettleResponse
	if err := json.Unmarshal(responseBytes, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment response: %w", err)
	}

	return &response, nil
}

// ExtractPaymentRequiredFromResult extracts PaymentRequired from an error tool result.
// structuredContent is preferred; the first text content is the fallback.
func ExtractPaymentRequiredFromResult(result MCPToolResult) (*x402.PaymentRequired, error) {
	if !result.IsError {
		return nil, nil
	}

	if result.StructuredContent != nil {
		if pr := extractPaymentRequiredFromObject(result.StructuredContent); pr != nil {
			return pr, nil
		}
	}

	if len(result.Content) > 0 {
		firstItem := result.Content[0]
		if firstItem.Type == "text" && firstItem.Text != "" {
			var parsed map[string]interface{}
			if err := json.Unmarshal([]byte(firstItem.Text), &parsed); err == nil {
				if pr := extractPaymentRequiredFromObject(parsed); pr != nil {
					return pr, nil
				}
			}
		}
	}

	return nil, nil
}

func extractPaymentRequiredFromObject(obj map[string]interface{}) *x402.PaymentRequired {
	if _, hasVersion := obj["x402Version"]; !hasVersion {
		return nil
	}

	accepts, ok := obj["accepts"].([]interface{})
	if !ok || len(accepts) == 0 {
		return nil
	}

	bytes, err := json.Marshal(obj)
	if err != nil {
		return nil
	}

	var pr x402.PaymentRequired
	if err := json.Unmarshal(bytes, &pr); err != nil {
		return nil
	}

	return &pr
}

// CreateToolResourceUrl creates a resource URL for an MCP tool
func CreateToolResourceUrl(toolName string, customUrl string) string {
	if customUrl != "" {
		return customUrl
	}
	return "mcp://tool/" + toolName
}

// IsObject checks if a value is a non-null object (map[string]interface{}).
func IsObject(value interface{}) bool {
	if value == nil {
		return false
	}
	_, ok := value.(map[string]interface{})
	return ok
}

// CreatePaymentRequiredError creates a PaymentRequiredError with the given message and payment required data.
func CreatePaymentRequiredError(message string, paymentRequired *x402.PaymentRequired) *PaymentRequiredError {
	return &PaymentRequiredError{
		Code:            MCP_PAYMENT_REQUIRED_CODE,
		Message:         message,
		PaymentRequired: paymentRequired,
	}
}

// IsPaymentRequiredError checks if an error is a PaymentRequiredError.
//
// Example:
//
//	_, err := client.CallTool(ctx, "tool", args)
//	if mcp.IsPaymentRequiredError(err) {
//	    var paymentErr *mcp.PaymentRequiredError
//	    errors.As(err, &paymentErr)
//	    // Handle payment required
//	}
func IsPaymentRequiredError(err error) bool {
	if err == nil {
		return false
	}
	var target *PaymentRequiredError
	return errors.As(err, &target)
}

// ExtractPaymentRequiredFromError extracts PaymentRequired from a decoded JSON-RPC error
// object with code 402.
func ExtractPaymentRequiredFromError(err interface{}) (*x402.PaymentRequired, error) {
	if !IsObject(err) {
		return nil, nil
	}

	errObj := err.(map[string]interface{})

	code, ok := errObj["code"].(float64)
	if !ok || int(code) != MCP_PAYMENT_REQUIRED_CODE {
		return nil, nil
	}

	dataObj, ok := errObj["data"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	return extractPaymentRequiredFromObject(dataObj), nil
}

// paymentRequiredFromCallError looks for a 402 envelope along the wrap chain of
// an error returned by the MCP session. JSON-RPC error values are matched by
// their {"code", "message", "data"} encoding.
func paymentRequiredFromCallError(err error) *x402.PaymentRequired {
	var paymentErr *PaymentRequiredError
	if errors.As(err, &paymentErr) && paymentErr.PaymentRequired != nil {
		return paymentErr.PaymentRequired
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		data, marshalErr := json.Marshal(e)
		if marshalErr != nil {
			continue
		}
		var obj map[string]interface{}
		if json.Unmarshal(data, &obj) != nil {
			continue
		}
		if pr, _ := ExtractPaymentRequiredFromError(obj); pr != nil {
			return pr
		}
	}
	return nil
}
