package types

// TransferAuthorization is the EIP-3009 style push-transfer authorization signed
// for the "native_exact" scheme. Nonce and validity window are chosen by the payer.
type TransferAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// TransferAuthorizationPayload is the scheme payload of the "native_exact" scheme
type TransferAuthorizationPayload struct {
	Signature     string                `json:"signature"`
	Authorization TransferAuthorization `json:"authorization"`
}
