package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/romashorodok/conferencing-platform/internal/room"
	"github.com/romashorodok/conferencing-platform/pkg/executils"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const _FANOUT_STEP = 64

// fanout queues frame for every target and splits targets into those with
// at least one live connection and those without.
func (c *Coordinator) fanout(targets []protocol.UserID, frame protocol.Outbound) (delivered, gone []protocol.UserID) {
	reached := make([]bool, len(targets))
	executils.ParallelExec(lo.Range(len(targets)), c.fanoutThreshold, _FANOUT_STEP, func(i int) {
		reached[i] = c.connections.SendToUser(targets[i], frame) > 0
	})

	for i, userID := range targets {
		if reached[i] {
			delivered = append(delivered, userID)
		} else {
			gone = append(gone, userID)
		}
	}
	return delivered, gone
}

func (c *Coordinator) emit(roomID protocol.RoomID, recipients []protocol.UserID, eventType protocol.EventType, data any) {
	if len(recipients) == 0 {
		return
	}
	c.fanout(recipients, protocol.Event{
		Type:   eventType,
		RoomID: roomID,
		Data:   data,
	})
}

func unreachable(code string, ids []string) []string {
	return lo.Map(ids, func(id string, _ int) string {
		return fmt.Sprintf("%s:%s", code, id)
	})
}

type messageRelayData struct {
	RoomID      protocol.RoomID   `json:"roomId"`
	ReceiverIDs []protocol.UserID `json:"receiverIds"`
	RelayData   json.RawMessage   `json:"relayData"`
}

type relayAck struct {
	Delivered   []protocol.UserID `json:"delivered"`
	Unreachable []string          `json:"unreachable"`
}

// messageRelay forwards an opaque payload to members of one room. The sender
// id on the delivery is always the caller; whatever the payload claims is
// carried untouched inside relayData.
func (c *Coordinator) messageRelay(_ context.Context, cl *call) (any, error) {
	var data messageRelayData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	r, err := c.rooms.Get(data.RoomID)
	if err != nil {
		return nil, err
	}
	if !r.IsMember(cl.userID) {
		return nil, room.ErrNotMember
	}

	var targets, outsiders []protocol.UserID
	if data.ReceiverIDs == nil {
		targets = r.Others(cl.userID)
	} else {
		requested := lo.Without(lo.Uniq(data.ReceiverIDs), cl.userID)
		targets, outsiders = lo.FilterReject(requested, func(id protocol.UserID, _ int) bool {
			return r.IsMember(id)
		})
	}

	notMember := unreachable(protocol.CodeNotMember, outsiders)
	delivered, gone := c.fanout(targets, protocol.RelayDelivery{
		AwaitID:   cl.req.AwaitID,
		RoomID:    r.ID,
		SenderID:  cl.userID,
		RelayData: data.RelayData,
		Errors:    notMember,
	})

	return relayAck{
		Delivered:   emptyIfNil(delivered),
		Unreachable: append(notMember, unreachable(protocol.CodeConnectionGone, gone)...),
	}, nil
}

type roomBroadcastData struct {
	RoomIDs   []protocol.RoomID `json:"roomIds"`
	RelayData json.RawMessage   `json:"relayData"`
}

type broadcastAck struct {
	Delivered   map[protocol.RoomID][]protocol.UserID `json:"delivered"`
	Skipped     []string                              `json:"skipped"`
	Unreachable []string                              `json:"unreachable"`
}

type roomDelivery struct {
	skipped   string
	delivered []protocol.UserID
	gone      []protocol.UserID
}

// roomBroadcast relays one payload into several rooms. Rooms the caller may
// not speak in are skipped one by one.
func (c *Coordinator) roomBroadcast(ctx context.Context, cl *call) (any, error) {
	var data roomBroadcastData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	roomIDs := lo.Uniq(data.RoomIDs)
	results := make([]roomDelivery, len(roomIDs))

	g, _ := errgroup.WithContext(ctx)
	for i, roomID := range roomIDs {
		g.Go(func() error {
			r, err := c.rooms.Get(roomID)
			if err != nil {
				results[i].skipped = protocol.CodeRoomNotFound + ":" + roomID
				return nil
			}
			if !r.IsMember(cl.userID) {
				results[i].skipped = protocol.CodeNotMember + ":" + roomID
				return nil
			}

			results[i].delivered, results[i].gone = c.fanout(r.Others(cl.userID), protocol.RelayDelivery{
				RoomID:    r.ID,
				SenderID:  cl.userID,
				RelayData: data.RelayData,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ack := broadcastAck{
		Delivered:   make(map[protocol.RoomID][]protocol.UserID),
		Skipped:     []string{},
		Unreachable: []string{},
	}
	for i, res := range results {
		if res.skipped != "" {
			ack.Skipped = append(ack.Skipped, res.skipped)
			continue
		}
		ack.Delivered[roomIDs[i]] = emptyIfNil(res.delivered)
		ack.Unreachable = append(ack.Unreachable, unreachable(protocol.CodeConnectionGone, res.gone)...)
	}
	return ack, nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
