package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventInitializedType  = "initialized"
	EventTransferType     = "transfer"
	EventProposedType     = "proposed"
	EventVotedType        = "voted"
	EventGraceStartedType = "grace_started"
	EventProcessedType    = "processed"
	EventRageQuitType     = "rage_quit"
)

// Event is a domain event returned by a ledger call, in emission order.
type Event interface {
	EventType() string
}

type EventInitialized struct {
	Member common.Address `json:"member"`
	Supply uint64         `json:"supply"`
	Shares uint64         `json:"shares"`
}

type EventTransfer struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

type EventProposed struct {
	Hash            common.Hash    `json:"hash"`
	Index           uint32         `json:"index"`
	Tribute         uint64         `json:"tribute"`
	Sponsor         common.Address `json:"sponsor"`
	Applicant       common.Address `json:"applicant"`
	SharesRequested uint32         `json:"sharesRequested"`
	StartTime       uint64         `json:"startTime"`
}

type EventVoted struct {
	Hash      common.Hash    `json:"hash"`
	Voter     common.Address `json:"voter"`
	Approve   bool           `json:"approve"`
	Weight    uint64         `json:"weight"`
	YesWeight uint64         `json:"yesWeight"`
	NoWeight  uint64         `json:"noWeight"`
}

type EventGraceStarted struct {
	Hash       common.Hash `json:"hash"`
	GraceStart uint64      `json:"graceStart"`
}

type EventProcessed struct {
	Hash   common.Hash `json:"hash"`
	Passed bool        `json:"passed"`
}

type EventRageQuit struct {
	Member common.Address `json:"member"`
	Shares uint64         `json:"shares"`
}

func (*EventInitialized) EventType() string  { return EventInitializedType }
func (*EventTransfer) EventType() string     { return EventTransferType }
func (*EventProposed) EventType() string     { return EventProposedType }
func (*EventVoted) EventType() string        { return EventVotedType }
func (*EventGraceStarted) EventType() string { return EventGraceStartedType }
func (*EventProcessed) EventType() string    { return EventProcessedType }
func (*EventRageQuit) EventType() string     { return EventRageQuitType }

// EncodeEvent converts a domain event into the attribute form published by
// the consensus engine. Unknown events encode to an empty event.
func EncodeEvent(event Event) abci.Event {
	switch ev := event.(type) {
	case *EventInitialized:
		return abci.Event{
			Type: EventInitializedType,
			Attributes: []abci.EventAttribute{
				{Key: "member", Value: ev.Member.Hex(), Index: true},
				{Key: "supply", Value: fmt.Sprintf("%v", ev.Supply), Index: false},
				{Key: "shares", Value: fmt.Sprintf("%v", ev.Shares), Index: false},
			},
		}
	case *EventTransfer:
		return abci.Event{
			Type: EventTransferType,
			Attributes: []abci.EventAttribute{
				{Key: "from", Value: ev.From.Hex(), Index: true},
				{Key: "to", Value: ev.To.Hex(), Index: true},
				{Key: "amount", Value: fmt.Sprintf("%v", ev.Amount), Index: false},
			},
		}
	case *EventProposed:
		return abci.Event{
			Type: EventProposedType,
			Attributes: []abci.EventAttribute{
				{Key: "hash", Value: ev.Hash.Hex(), Index: true},
				{Key: "index", Value: fmt.Sprintf("%v", ev.Index), Index: false},
				{Key: "tribute", Value: fmt.Sprintf("%v", ev.Tribute), Index: false},
				{Key: "sponsor", Value: ev.Sponsor.Hex(), Index: true},
				{Key: "applicant", Value: ev.Applicant.Hex(), Index: true},
				{Key: "sharesRequested", Value: fmt.Sprintf("%v", ev.SharesRequested), Index: false},
				{Key: "startTime", Value: fmt.Sprintf("%v", ev.StartTime), Index: false},
			},
		}
	case *EventVoted:
		return abci.Event{
			Type: EventVotedType,
			Attributes: []abci.EventAttribute{
				{Key: "hash", Value: ev.Hash.Hex(), Index: true},
				{Key: "voter", Value: ev.Voter.Hex(), Index: true},
				{Key: "approve", Value: fmt.Sprintf("%v", ev.Approve), Index: false},
				{Key: "weight", Value: fmt.Sprintf("%v", ev.Weight), Index: false},
				{Key: "yesWeight", Value: fmt.Sprintf("%v", ev.YesWeight), Index: false},
				{Key: "noWeight", Value: fmt.Sprintf("%v", ev.NoWeight), Index: false},
			},
		}
	case *EventGraceStarted:
		return abci.Event{
			Type: EventGraceStartedType,
			Attributes: []abci.EventAttribute{
				{Key: "hash", Value: ev.Hash.Hex(), Index: true},
				{Key: "graceStart", Value: fmt.Sprintf("%v", ev.GraceStart), Index: false},
			},
		}
	case *EventProcessed:
		return abci.Event{
			Type: EventProcessedType,
			Attributes: []abci.EventAttribute{
				{Key: "hash", Value: ev.Hash.Hex(), Index: true},
				{Key: "passed", Value: fmt.Sprintf("%v", ev.Passed), Index: false},
			},
		}
	case *EventRageQuit:
		return abci.Event{
			Type: EventRageQuitType,
			Attributes: []abci.EventAttribute{
				{Key: "member", Value: ev.Member.Hex(), Index: true},
				{Key: "shares", Value: fmt.Sprintf("%v", ev.Shares), Index: false},
			},
		}
	}
	return abci.Event{}
}

func EncodeEvents(events []Event) []abci.Event {
	res := make([]abci.Event, 0, len(events))
	for _, ev := range events {
		res = append(res, EncodeEvent(ev))
	}
	return res
}

func parseAddress(v string) (common.Address, bool) {
	if !common.IsHexAddress(v) {
		return common.Address{}, false
	}
	return common.HexToAddress(v), true
}

func parseHash(v string) (common.Hash, bool) {
	b := common.FromHex(v)
	if len(b) != common.HashLength {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}

func DecodeEventInitialized(originEvent abci.Event) *EventInitialized {
	event := &EventInitialized{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "member":
			member, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Member = member
		case "supply":
			supply, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Supply = supply
		case "shares":
			shares, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Shares = shares
		}
	}
	return event
}

func DecodeEventTransfer(originEvent abci.Event) *EventTransfer {
	event := &EventTransfer{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "from":
			from, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.From = from
		case "to":
			to, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.To = to
		case "amount":
			amount, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Amount = amount
		}
	}
	return event
}

func DecodeEventProposed(originEvent abci.Event) *EventProposed {
	event := &EventProposed{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "hash":
			hash, ok := parseHash(v.Value)
			if !ok {
				return nil
			}
			event.Hash = hash
		case "index":
			index, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.Index = uint32(index)
		case "tribute":
			tribute, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Tribute = tribute
		case "sponsor":
			sponsor, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Sponsor = sponsor
		case "applicant":
			applicant, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Applicant = applicant
		case "sharesRequested":
			shares, err := strconv.ParseUint(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.SharesRequested = uint32(shares)
		case "startTime":
			start, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.StartTime = start
		}
	}
	return event
}

func DecodeEventVoted(originEvent abci.Event) *EventVoted {
	event := &EventVoted{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "hash":
			hash, ok := parseHash(v.Value)
			if !ok {
				return nil
			}
			event.Hash = hash
		case "voter":
			voter, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Voter = voter
		case "approve":
			approve, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Approve = approve
		case "weight":
			weight, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Weight = weight
		case "yesWeight":
			yes, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.YesWeight = yes
		case "noWeight":
			no, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.NoWeight = no
		}
	}
	return event
}

func DecodeEventGraceStarted(originEvent abci.Event) *EventGraceStarted {
	event := &EventGraceStarted{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "hash":
			hash, ok := parseHash(v.Value)
			if !ok {
				return nil
			}
			event.Hash = hash
		case "graceStart":
			start, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.GraceStart = start
		}
	}
	return event
}

func DecodeEventProcessed(originEvent abci.Event) *EventProcessed {
	event := &EventProcessed{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "hash":
			hash, ok := parseHash(v.Value)
			if !ok {
				return nil
			}
			event.Hash = hash
		case "passed":
			passed, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Passed = passed
		}
	}
	return event
}

func DecodeEventRageQuit(originEvent abci.Event) *EventRageQuit {
	event := &EventRageQuit{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "member":
			member, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Member = member
		case "shares":
			shares, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Shares = shares
		}
	}
	return event
}
