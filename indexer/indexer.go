package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/calehh/guild-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

var ErrDecodeEvent = errors.New("decode event fail")

// ChainIndexer follows committed blocks over RPC and mirrors guild events into
// sqlite. Height is the next block to index.
type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           *comethttp.HTTP
	eventHandlers map[string]eventHandler
	interval      time.Duration
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string, interval time.Duration) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Proposal{}, &Vote{}, &Transfer{}, &Member{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		db.Close()
		return nil, err
	}
	if interval <= 0 {
		interval = time.Second
	}

	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Url:      chainUrl,
		Height:   int64(h.Height + 1),
		db:       db,
		cli:      cli,
		interval: interval,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventInitializedType:  c.handleEventInitialized,
		types.EventTransferType:     c.handleEventTransfer,
		types.EventProposedType:     c.handleEventProposed,
		types.EventVotedType:        c.handleEventVoted,
		types.EventGraceStartedType: c.handleEventGraceStarted,
		types.EventProcessedType:    c.handleEventProcessed,
		types.EventRageQuitType:     c.handleEventRageQuit,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

// HandleBlock indexes the events of one block and records it as the last
// indexed height. The block is written in a single sqlite transaction.
func (c *ChainIndexer) HandleBlock(height int64, results []*abci.ExecTxResult) error {
	db := c.db.Begin()
	if err := db.Error; err != nil {
		return err
	}
	for _, res := range results {
		if res == nil || res.Code != 0 {
			continue
		}
		for _, event := range res.Events {
			if err := c.handleEvent(db, event, height); err != nil {
				db.Rollback()
				return err
			}
		}
	}
	if err := db.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		db.Rollback()
		return err
	}
	if err := db.Commit().Error; err != nil {
		return err
	}
	c.Height = height + 1
	return nil
}

func (c *ChainIndexer) handleEventInitialized(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventInitialized(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return ErrDecodeEvent
	}
	member := Member{
		Address:    ev.Member.Hex(),
		Shares:     ev.Shares,
		Active:     true,
		JoinHeight: uint64(height),
	}
	return db.Save(&member).Error
}

func (c *ChainIndexer) handleEventTransfer(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventTransfer(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return ErrDecodeEvent
	}
	transfer := Transfer{
		From:   ev.From.Hex(),
		To:     ev.To.Hex(),
		Amount: ev.Amount,
		Height: uint64(height),
	}
	return db.Create(&transfer).Error
}

func (c *ChainIndexer) handleEventProposed(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposed(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return ErrDecodeEvent
	}
	proposal := Proposal{
		Hash:            ev.Hash.Hex(),
		Index:           ev.Index,
		Sponsor:         ev.Sponsor.Hex(),
		Applicant:       ev.Applicant.Hex(),
		SharesRequested: ev.SharesRequested,
		Tribute:         ev.Tribute,
		StartTime:       ev.StartTime,
		NewHeight:       uint64(height),
	}
	return db.Save(&proposal).Error
}

func (c *ChainIndexer) handleEventVoted(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVoted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return ErrDecodeEvent
	}
	vote := Vote{
		Proposal: ev.Hash.Hex(),
		Voter:    ev.Voter.Hex(),
		Approve:  ev.Approve,
		Weight:   ev.Weight,
		Height:   uint64(height),
	}
	if err := db.Create(&vote).Error; err != nil {
		return err
	}
	return db.Model(&Proposal{}).Where("hash = ?", vote.Proposal).Updates(map[string]interface{}{
		"yes_weight": ev.YesWeight,
		"no_weight":  ev.NoWeight,
	}).Error
}

func (c *ChainIndexer) handleEventGraceStarted(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventGraceStarted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return ErrDecodeEvent
	}
	return db.Model(&Proposal{}).Where("hash = ?", ev.Hash.Hex()).Updates(map[string]interface{}{
		"in_grace":    true,
		"grace_start": ev.GraceStart,
	}).Error
}

func (c *ChainIndexer) handleEventProcessed(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProcessed(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return ErrDecodeEvent
	}
	var proposal Proposal
	if err := db.Where("hash = ?", ev.Hash.Hex()).First(&proposal).Error; err != nil {
		c.logger.Error("get proposal fail", "hash", ev.Hash, "err", err)
		return err
	}
	proposal.Processed = true
	proposal.Passed = ev.Passed
	proposal.ProcessHeight = uint64(height)
	if err := db.Save(&proposal).Error; err != nil {
		return err
	}
	if !ev.Passed {
		return nil
	}
	member := Member{Address: proposal.Applicant}
	if err := db.Where("address = ?", proposal.Applicant).First(&member).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if !member.Active {
		member.Shares = 0
		member.JoinHeight = uint64(height)
		member.QuitHeight = 0
	}
	member.Active = true
	member.Shares += uint64(proposal.SharesRequested)
	return db.Save(&member).Error
}

func (c *ChainIndexer) handleEventRageQuit(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventRageQuit(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return ErrDecodeEvent
	}
	return db.Model(&Member{}).Where("address = ?", ev.Member.Hex()).Updates(map[string]interface{}{
		"active":      false,
		"shares":      0,
		"quit_height": uint64(height),
	}).Error
}

func (c *ChainIndexer) reconnect() {
	if c.cli.IsRunning() {
		return
	}
	c.cli.Stop()
	cli, err := comethttp.New(c.Url, "/websocket")
	if err != nil {
		c.logger.Error("reconnect fail", "err", err)
		return
	}
	c.cli = cli
}

// Start polls the node and indexes every block up to the latest height until
// ctx is done.
func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b, err := c.cli.Status(ctx)
			if err != nil {
				c.logger.Error("get status fail", "err", err)
				c.reconnect()
				continue
			}
			for b.SyncInfo.LatestBlockHeight >= c.Height {
				if ctx.Err() != nil {
					return
				}
				height := c.Height
				c.logger.Debug("indexer syncing", "height", height)
				res, err := c.cli.BlockResults(ctx, &height)
				if err != nil {
					c.logger.Error("get block results fail", "height", height, "err", err)
					c.reconnect()
					break
				}
				if err := c.HandleBlock(height, res.TxsResults); err != nil {
					c.logger.Error("index block fail", "height", height, "err", err)
					break
				}
			}
		}
	}
}

func (c *ChainIndexer) getProposals(sponsor string, page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	q := c.db.Model(&Proposal{})
	if sponsor != "" {
		q = q.Where("sponsor = ?", sponsor)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("`index` desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalByHash(hash string) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("hash = ?", hash).First(&proposal).Error
	return proposal, err
}

func (c *ChainIndexer) getVotesByProposal(hash string, page int, pageSize int) ([]Vote, uint64, error) {
	var votes []Vote
	q := c.db.Model(&Vote{}).Where("proposal = ?", hash)
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id asc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getMembers(activeOnly bool) ([]Member, error) {
	var members []Member
	q := c.db.Model(&Member{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Order("address asc").Find(&members).Error
	return members, err
}

func (c *ChainIndexer) getTransfers(address string, page int, pageSize int) ([]Transfer, uint64, error) {
	var transfers []Transfer
	q := c.db.Model(&Transfer{})
	if address != "" {
		q = q.Where("`from` = ? OR `to` = ?", address, address)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&transfers).Error
	if err != nil {
		return nil, 0, err
	}
	return transfers, total, nil
}
