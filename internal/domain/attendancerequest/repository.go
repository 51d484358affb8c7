package attendancerequest

import "context"

type AttendanceRequestRepository interface {
	Create(ctx context.Context, req AttendanceRequest) (AttendanceRequest, error)
	GetByID(ctx context.Context, id string) (AttendanceRequest, error)

	// GetByIDForUpdate locks the request row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (AttendanceRequest, error)

	Update(ctx context.Context, req AttendanceRequest) (AttendanceRequest, error)
	Delete(ctx context.Context, id string) error

	// List returns requests ordered by requested_at descending.
	List(ctx context.Context, filter ListFilter) ([]AttendanceRequest, error)

	// CreateApproval appends the audit record. A second decision for the
	// same request fails with ErrRequestAlreadyDecided.
	CreateApproval(ctx context.Context, approval Approval) (Approval, error)
	ListApprovals(ctx context.Context, filter ApprovalFilter) ([]Approval, error)
}
