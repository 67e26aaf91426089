package indexer

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 1000
)

type Service struct {
	engine  *gin.Engine
	indexer *ChainIndexer
	server  *http.Server
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:  r,
		indexer: indexer,
	}
	s.server = &http.Server{Addr: listenAddr, Handler: r}
	s.engine.GET("/status", s.handleStatus)
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getMembers", s.handleGetMembers)
	s.engine.POST("/getTransfers", s.handleGetTransfers)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called, returning http.ErrServerClosed.
func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func pageArgs(page, pageSize int) (int, int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

type StatusResponse struct {
	Height int64 `json:"height"`
}

func (s *Service) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Height: s.indexer.Height - 1})
}

type ProposalInfo struct {
	Proposal Proposal `json:"proposal"`
	Votes    []Vote   `json:"votes"`
}

type GetProposalsReq struct {
	Hash     string `json:"hash"`
	Sponsor  string `json:"sponsor"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetProposalsResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func (s *Service) proposalInfo(p Proposal) (ProposalInfo, error) {
	votes, _, err := s.indexer.getVotesByProposal(p.Hash, 0, maxPageSize)
	if err != nil {
		return ProposalInfo{}, err
	}
	if votes == nil {
		votes = []Vote{}
	}
	return ProposalInfo{Proposal: p, Votes: votes}, nil
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalsResponse
	response.Proposals = make([]ProposalInfo, 0)
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requestData.Hash != "" {
		p, err := s.indexer.getProposalByHash(requestData.Hash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		info, err := s.proposalInfo(p)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, info)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}

	page, pageSize := pageArgs(requestData.Page, requestData.PageSize)
	proposals, total, err := s.indexer.getProposals(requestData.Sponsor, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Total = total
	for _, p := range proposals {
		info, err := s.proposalInfo(p)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, info)
	}
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	Hash     string `json:"hash"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []Vote `json:"votes"`
	Total uint64 `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.Hash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hash is required"})
		return
	}
	page, pageSize := pageArgs(requestData.Page, requestData.PageSize)
	votes, total, err := s.indexer.getVotesByProposal(requestData.Hash, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if votes == nil {
		votes = []Vote{}
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votes, Total: total})
}

type GetMembersReq struct {
	ActiveOnly bool `json:"activeOnly"`
}

type GetMembersResponse struct {
	Members []Member `json:"members"`
	Total   uint64   `json:"total"`
}

func (s *Service) handleGetMembers(c *gin.Context) {
	var requestData GetMembersReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	members, err := s.indexer.getMembers(requestData.ActiveOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if members == nil {
		members = []Member{}
	}
	c.JSON(http.StatusOK, GetMembersResponse{Members: members, Total: uint64(len(members))})
}

type GetTransfersReq struct {
	Address  string `json:"address"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetTransfersResponse struct {
	Transfers []Transfer `json:"transfers"`
	Total     uint64     `json:"total"`
}

func (s *Service) handleGetTransfers(c *gin.Context) {
	var requestData GetTransfersReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, pageSize := pageArgs(requestData.Page, requestData.PageSize)
	transfers, total, err := s.indexer.getTransfers(requestData.Address, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if transfers == nil {
		transfers = []Transfer{}
	}
	c.JSON(http.StatusOK, GetTransfersResponse{Transfers: transfers, Total: total})
}
