package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

type Proposal struct {
	Hash            string `gorm:"primary_key" json:"hash"`
	Index           uint32 `gorm:"index" json:"index"`
	Sponsor         string `gorm:"index" json:"sponsor"`
	Applicant       string `json:"applicant"`
	SharesRequested uint32 `json:"shares_requested"`
	Tribute         uint64 `json:"tribute"`
	StartTime       uint64 `json:"start_time"`
	NewHeight       uint64 `json:"new_height"`
	YesWeight       uint64 `json:"yes_weight"`
	NoWeight        uint64 `json:"no_weight"`
	InGrace         bool   `json:"in_grace"`
	GraceStart      uint64 `json:"grace_start"`
	Processed       bool   `json:"processed"`
	Passed          bool   `json:"passed"`
	ProcessHeight   uint64 `json:"process_height"`
}

type Vote struct {
	Id       uint64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Proposal string `gorm:"index" json:"proposal"`
	Voter    string `json:"voter"`
	Approve  bool   `json:"approve"`
	Weight   uint64 `json:"weight"`
	Height   uint64 `json:"height"`
}

type Transfer struct {
	Id     uint64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	From   string `gorm:"index" json:"from"`
	To     string `gorm:"index" json:"to"`
	Amount uint64 `json:"amount"`
	Height uint64 `json:"height"`
}

type Member struct {
	Address    string `gorm:"primary_key" json:"address"`
	Shares     uint64 `json:"shares"`
	Active     bool   `json:"active"`
	JoinHeight uint64 `json:"join_height"`
	QuitHeight uint64 `json:"quit_height"`
}
