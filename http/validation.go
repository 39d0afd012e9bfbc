package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	x402 "github.com/bankofai/x402/go"
)

// Base64 regex pattern - requires at least one character
var base64Regex = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)

// paymentRequiredSchema describes the version 2 PAYMENT-REQUIRED envelope
const paymentRequiredSchema = `{
  "type": "object",
  "required": ["x402Version", "accepts"],
  "properties": {
    "x402Version": {"type": "integer", "const": 2},
    "error": {"type": "string"},
    "resource": {
      "type": "object",
      "required": ["url"],
      "properties": {
        "url": {"type": "string"},
        "description": {"type": "string"},
        "mimeType": {"type": "string"}
      }
    },
    "accepts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["scheme", "network", "asset", "amount", "payTo"],
        "properties": {
          "scheme": {"type": "string", "minLength": 1},
          "network": {"type": "string", "pattern": "^[^:]+:.*$"},
          "asset": {"type": "string", "minLength": 1},
          "amount": {"type": "string", "pattern": "^[0-9]+$"},
          "payTo": {"type": "string", "minLength": 1},
          "maxTimeoutSeconds": {"type": "integer", "minimum": 0},
          "extra": {"type": "object"}
        }
      }
    },
    "extensions": {"type": "object"}
  }
}`

var paymentRequiredSchemaLoader = gojsonschema.NewStringLoader(paymentRequiredSchema)

// ValidateAndDecodePaymentRequiredHeader validates and decodes a PAYMENT-REQUIRED header.
// It checks:
// - Base64 format
// - JSON structure
// - Required fields, their types and the protocol version
func ValidateAndDecodePaymentRequiredHeader(header string) (*x402.PaymentRequired, error) {
	decoded, err := decodeBase64JSON(header)
	if err != nil {
		return nil, err
	}

	if err := validateAgainst(paymentRequiredSchemaLoader, decoded); err != nil {
		return nil, err
	}

	var required x402.PaymentRequired
	if err := json.Unmarshal(decoded, &required); err != nil {
		return nil, fmt.Errorf("failed to parse payment required: %v", err)
	}
	return &required, nil
}

func decodeBase64JSON(header string) ([]byte, error) {
	if header == "" {
		return nil, fmt.Errorf("header is empty")
	}
	if !base64Regex.MatchString(header) {
		return nil, fmt.Errorf("invalid header format: not valid base64")
	}

	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("invalid header format: base64 decoding failed - %v", err)
	}
	if !json.Valid(decoded) {
		return nil, fmt.Errorf("invalid header format: not valid JSON")
	}
	return decoded, nil
}

func validateAgainst(schema gojsonschema.JSONLoader, document []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("schema validation failed: %v", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("invalid payment required: %s", strings.Join(problems, "; "))
}
