// Package shipping registers consignments with MyParcel and retrieves their
// labels and status.
package shipping

import (
	"context"
)

// DefaultRefreshSize is the page size used when refreshing shipments.
const DefaultRefreshSize = 300

// Provider defines the MyParcel operations on a collection of consignments.
// Client talks to the API; MockProvider is for tests.
type Provider interface {
	// CreateConcepts registers every consignment without a MyParcel id and
	// stores the assigned ids on the consignments.
	CreateConcepts(ctx context.Context, col *Collection) error

	// DeleteConcepts removes the registered consignments from MyParcel.
	DeleteConcepts(ctx context.Context, col *Collection) error

	// Refresh replaces the consignments with their current state at MyParcel.
	Refresh(ctx context.Context, col *Collection, size int) error

	// Recent returns the most recently created shipments of an account.
	Recent(ctx context.Context, apiKey string, size int) (*Collection, error)

	// LabelLink creates concepts where needed and returns a download link
	// for the labels.
	LabelLink(ctx context.Context, col *Collection, format LabelFormat) (string, error)

	// LabelPDF creates concepts where needed and returns the label PDF.
	LabelPDF(ctx context.Context, col *Collection, format LabelFormat) ([]byte, error)

	// SendReturnLabelMails mails the recipient of the first consignment a
	// return label they can pay for and print.
	SendReturnLabelMails(ctx context.Context, col *Collection) error
}
