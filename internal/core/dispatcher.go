package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/directory"
	"github.com/lpusphere/sphere-server/internal/store"
	"github.com/lpusphere/sphere-server/internal/unread"
)

// previewRunes bounds the notification text preview.
const previewRunes = 80

// Identity is the verified sender supplied by the auth layer. The core
// trusts it without re-checking credentials.
type Identity struct {
	RegNo string
	Name  string
	Role  store.Role
}

// Dispatcher runs the send pipeline: validate, authorize, persist,
// broadcast, notify. Persistence precedes visibility: a message is never
// broadcast unless the append succeeded. Sends to the same class are
// serialized so broadcast order matches persisted order; different classes
// interleave freely.
type Dispatcher struct {
	messages       store.MessageStore
	directory      *directory.Directory
	registry       *Registry
	unread         *unread.Tracker
	log            *zerolog.Logger
	storageTimeout time.Duration

	mu         sync.Mutex
	classLocks map[string]*sync.Mutex
}

// NewDispatcher wires the fan-out pipeline.
func NewDispatcher(
	messages store.MessageStore,
	dir *directory.Directory,
	registry *Registry,
	tracker *unread.Tracker,
	logger *zerolog.Logger,
	storageTimeout time.Duration,
) *Dispatcher {
	return &Dispatcher{
		messages:       messages,
		directory:      dir,
		registry:       registry,
		unread:         tracker,
		log:            logger,
		storageTimeout: storageTimeout,
		classLocks:     make(map[string]*sync.Mutex),
	}
}

// Dispatch sends a message to a class room on behalf of sender.
// Returns the persisted message, or one of ErrEmptyMessage,
// directory.ErrClassNotFound, ErrNotAuthorized, *StorageError.
// Delivery-stage faults (dead sessions, counter write failures) are logged
// and skipped; they never fail the send once the message is durable.
func (d *Dispatcher) Dispatch(ctx context.Context, sender Identity, classID, text string) (*store.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	// Fresh roster read on every send; membership is externally mutated
	// and must never be cached across requests.
	membership, err := d.directory.Resolve(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !membership.Authorized(sender.RegNo) {
		return nil, ErrNotAuthorized
	}

	lock := d.classLock(classID)
	lock.Lock()
	defer lock.Unlock()

	msg := &store.Message{
		ClassID:     classID,
		SenderRegNo: sender.RegNo,
		SenderName:  sender.Name,
		Text:        text,
	}

	appendCtx, cancel := context.WithTimeout(ctx, d.storageTimeout)
	defer cancel()
	if err := d.messages.AppendMessage(appendCtx, msg); err != nil {
		if errors.Is(err, store.ErrEmptyText) {
			return nil, ErrEmptyMessage
		}
		return nil, &StorageError{Op: "append message", Err: err}
	}

	d.broadcast(msg)
	d.notify(membership, sender.RegNo, msg)

	return msg, nil
}

// broadcast emits the persisted message to every session joined to the
// room, once per session. Slow consumers are dropped, not waited on.
func (d *Dispatcher) broadcast(msg *store.Message) {
	event := Event{Kind: EventNewMessage, Message: msg}
	for _, client := range d.registry.SessionsInRoom(msg.ClassID) {
		select {
		case client.Events <- event:
		default:
			d.log.Warn().
				Str("session_id", client.ID).
				Str("class_id", msg.ClassID).
				Msg("dropping message for slow session")
		}
	}
}

// notify raises unread counters and personal-channel notifications for
// members not currently viewing the room. Present members already received
// the broadcast; notifying them too would duplicate delivery.
func (d *Dispatcher) notify(membership *directory.Membership, sender string, msg *store.Message) {
	present := d.registry.MembersPresentIn(msg.ClassID)

	event := Event{
		Kind: EventNotification,
		Notification: &Notification{
			ClassID:    membership.ClassID,
			ClassName:  membership.Name,
			SenderName: msg.SenderName,
			Preview:    preview(msg.Text),
			Kind:       "message",
		},
	}

	for _, regNo := range membership.Recipients(sender) {
		if _, viewing := present[regNo]; viewing {
			continue
		}

		counterCtx, cancel := context.WithTimeout(context.Background(), d.storageTimeout)
		err := d.unread.Increment(counterCtx, regNo, msg.ClassID)
		cancel()
		if err != nil {
			// Counter drift is recoverable on next room entry; the
			// message itself is already durable.
			d.log.Warn().Err(err).
				Str("reg_no", regNo).
				Str("class_id", msg.ClassID).
				Msg("failed to increment unread counter")
		}

		for _, client := range d.registry.PersonalSessions(regNo) {
			select {
			case client.Events <- event:
			default:
				d.log.Warn().
					Str("session_id", client.ID).
					Str("reg_no", regNo).
					Msg("dropping notification for slow session")
			}
		}
	}
}

// classLock returns the per-class send lock, creating it on first use.
func (d *Dispatcher) classLock(classID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, ok := d.classLocks[classID]
	if !ok {
		lock = &sync.Mutex{}
		d.classLocks[classID] = lock
	}
	return lock
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes])
}
