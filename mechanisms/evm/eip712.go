package evm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// DomainTypes returns the EIP712Domain type for the fields present in domain
func DomainTypes(domain TypedDataDomain) []TypedDataField {
	fields := make([]TypedDataField, 0, 4)
	if domain.Name != "" {
		fields = append(fields, TypedDataField{Name: "name", Type: "string"})
	}
	if domain.Version != "" {
		fields = append(fields, TypedDataField{Name: "version", Type: "string"})
	}
	if domain.ChainID != nil {
		fields = append(fields, TypedDataField{Name: "chainId", Type: "uint256"})
	}
	if domain.VerifyingContract != "" {
		fields = append(fields, TypedDataField{Name: "verifyingContract", Type: "address"})
	}
	return fields
}

// ToAPITypedData converts typed data into go-ethereum's representation.
// EIP712Domain is derived from the domain unless types already defines it.
func ToAPITypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) apitypes.TypedData {
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types, len(types)+1),
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: message,
	}

	for typeName, fields := range types {
		typedFields := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			typedFields[i] = apitypes.Type{
				Name: field.Name,
				Type: field.Type,
			}
		}
		typedData.Types[typeName] = typedFields
	}

	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		domainFields := DomainTypes(domain)
		typedFields := make([]apitypes.Type, len(domainFields))
		for i, field := range domainFields {
			typedFields[i] = apitypes.Type{Name: field.Name, Type: field.Type}
		}
		typedData.Types["EIP712Domain"] = typedFields
	}

	return typedData
}

// HashTypedData hashes EIP-712 typed data.
// The digest is keccak256("\x19\x01" ‖ domainSeparator ‖ hashStruct(message)).
func HashTypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	typedData := ToAPITypedData(domain, types, primaryType, message)

	dataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, dataHash...)
	return crypto.Keccak256(rawData), nil
}

// RecoverTypedDataSigner returns the address that produced signature over the typed data.
// Signatures with v in {27, 28} and {0, 1} are both accepted.
func RecoverTypedDataSigner(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
	signature []byte,
) (string, error) {
	if len(signature) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length: %d", len(signature))
	}

	digest, err := HashTypedData(domain, types, primaryType, message)
	if err != nil {
		return "", err
	}

	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
