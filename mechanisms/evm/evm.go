// Package evm provides EVM-family support for the x402 payment client.
//
// Two schemes are implemented:
//   - "exact": the buyer signs a PaymentPermit (EIP-712) against server-assigned
//     metadata; the PaymentPermit contract pulls amount + fee using an ERC-20 allowance.
//   - "native_exact": the buyer signs an EIP-3009 TransferWithAuthorization and the
//     token moves funds itself; no allowance is involved.
//
// Chains that hash typed data like EVM but use a different address format (TRON)
// reuse these mechanisms through an AddressConverter.
package evm
