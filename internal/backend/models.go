package backend

// CreateContractRequest is the body of POST /contracts.
// An empty Address asks the backend to create the market on-chain itself.
type CreateContractRequest struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
	CategoryID  int64    `json:"category_id"`
	EndDate     string   `json:"end_date,omitempty"`
}

// FavoriteRequest is the body of POST and DELETE /favorites
type FavoriteRequest struct {
	WalletAddress string `json:"wallet_address"`
	ContractID    int64  `json:"contract_id"`
}

// ResolveRequest is the body of POST /oracle/resolve
type ResolveRequest struct {
	MarketID string `json:"market_id"` // on-chain market address
	Winner   int    `json:"winner"`
}

// CancelRequest is the body of POST /market/cancel
type CancelRequest struct {
	MarketID string `json:"market_id"` // on-chain market address
}

// ResolveResponse reports the resolution or cancellation transaction submitted by the oracle
type ResolveResponse struct {
	Digest string `json:"digest"`
	Status string `json:"status"`
}

// ContractsParams filters GET /contracts
type ContractsParams struct {
	Search     string
	CategoryID *int64
}
