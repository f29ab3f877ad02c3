package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/realtime"
)

// CommentsUpdate is one push delivery for a comments subscription. On a
// failed refresh Comments is empty and Err carries the cause; the
// subscription itself stays alive.
type CommentsUpdate struct {
	Comments []Comment
	Err      error
}

// LikesUpdate is one push delivery for a likes subscription.
type LikesUpdate struct {
	Likes []Like
	Err   error
}

// SubscribeComments registers a live query for a listing's comments. The
// stream receives a fresh snapshot immediately and again after every
// comment mutation on the listing. The returned cancel function is safe to
// call any number of times; with a blank listing id the stream is closed
// immediately and cancel is a no-op.
func (s *Service) SubscribeComments(ctx context.Context, listingID string) (<-chan CommentsUpdate, func()) {
	if strings.TrimSpace(listingID) == "" {
		updates := make(chan CommentsUpdate)
		close(updates)
		return updates, func() {}
	}
	topic := realtime.Topic{Kind: realtime.KindComments, ListingID: listingID}
	notices, cancelNotices := s.dispatcher.Subscribe(ctx, topic)

	updates := make(chan CommentsUpdate, 1)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelNotices()
			close(done)
		})
	}

	go func() {
		defer close(updates)
		refresh := func() {
			comments, err := s.CommentsForListing(ctx, listingID)
			if err != nil {
				comments = []Comment{}
			}
			update := CommentsUpdate{Comments: comments, Err: err}
			select {
			case updates <- update:
			default:
				// A stale buffered snapshot gives way to the fresh one.
				select {
				case <-updates:
				default:
				}
				select {
				case updates <- update:
				default:
				}
			}
		}
		refresh()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case _, ok := <-notices:
				if !ok {
					return
				}
				refresh()
			}
		}
	}()

	return updates, cancel
}

// SubscribeLikes registers a live query for a listing's likes, with the
// same delivery and cancellation contract as SubscribeComments.
func (s *Service) SubscribeLikes(ctx context.Context, listingID string) (<-chan LikesUpdate, func()) {
	if strings.TrimSpace(listingID) == "" {
		updates := make(chan LikesUpdate)
		close(updates)
		return updates, func() {}
	}
	topic := realtime.Topic{Kind: realtime.KindLikes, ListingID: listingID}
	notices, cancelNotices := s.dispatcher.Subscribe(ctx, topic)

	updates := make(chan LikesUpdate, 1)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelNotices()
			close(done)
		})
	}

	go func() {
		defer close(updates)
		refresh := func() {
			likes, err := s.LikesForListing(ctx, listingID)
			if err != nil {
				likes = []Like{}
			}
			update := LikesUpdate{Likes: likes, Err: err}
			select {
			case updates <- update:
			default:
				// A stale buffered snapshot gives way to the fresh one.
				select {
				case <-updates:
				default:
				}
				select {
				case updates <- update:
				default:
				}
			}
		}
		refresh()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case _, ok := <-notices:
				if !ok {
					return
				}
				refresh()
			}
		}
	}()

	return updates, cancel
}
