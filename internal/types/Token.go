/*

Types shared by the PT and YT claim ledgers.

*/

package types

// TokenInfo describes a claim ledger for external consumers.
type TokenInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	Maturity    uint64 `json:"maturity"`
	TotalSupply uint64 `json:"total_supply"`
}

// UserSplitBalances is a user's view across one maturity series of the
// splitter: remaining SY plus the PT/YT claims minted against it.
type UserSplitBalances struct {
	SY uint64 `json:"sy"`
	PT uint64 `json:"pt"`
	YT uint64 `json:"yt"`
}
