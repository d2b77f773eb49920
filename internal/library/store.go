package library

import "context"

//go:generate mockgen -source=store.go -destination=mocks/store.go -package=mocks

// Store is the remote per-user document collection backing a library.
type Store interface {
	// Subscribe delivers the user's full document set, in insertion order,
	// once at subscribe time and again after every change.
	Subscribe(ctx context.Context, userID string, obs Observer) (Subscription, error)

	// Commit applies every operation in the batch atomically.
	Commit(ctx context.Context, userID string, b *Batch) error

	// Update writes the non-nil fields of u to one document.
	Update(ctx context.Context, userID, id string, u Update) error

	// Delete removes one document.
	Delete(ctx context.Context, userID, id string) error
}

// Subscription is a live Store subscription.
type Subscription interface {
	// Close stops delivery. No callback runs after Close returns.
	Close() error
}

// Observer receives Store pushes. Either func may be nil.
type Observer struct {
	Next  func(titles []TrackedTitle)
	Error func(err error)
}

// OpKind identifies a batch operation.
type OpKind int

const (
	OpCreate OpKind = iota + 1
	OpUpdate
	OpDelete
	OpTouchProfile
)

// Op is one write in a Batch.
type Op struct {
	Kind   OpKind
	Title  TrackedTitle // OpCreate
	ID     string       // OpUpdate, OpDelete
	Update Update       // OpUpdate
}

// Batch collects writes that a Store commits together.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Create adds a document. The store assigns CreatedAt.
func (b *Batch) Create(t TrackedTitle) *Batch {
	b.ops = append(b.ops, Op{Kind: OpCreate, Title: t})
	return b
}

// Update writes fields of an existing document.
func (b *Batch) Update(id string, u Update) *Batch {
	b.ops = append(b.ops, Op{Kind: OpUpdate, ID: id, Update: u})
	return b
}

// Delete removes a document.
func (b *Batch) Delete(id string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDelete, ID: id})
	return b
}

// TouchProfile moves the profile's lastModified marker to the commit time.
func (b *Batch) TouchProfile() *Batch {
	b.ops = append(b.ops, Op{Kind: OpTouchProfile})
	return b
}

// Ops returns the operations in the order they were added.
func (b *Batch) Ops() []Op {
	return b.ops
}

// Len returns the number of operations.
func (b *Batch) Len() int {
	return len(b.ops)
}
