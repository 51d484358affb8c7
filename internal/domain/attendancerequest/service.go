package attendancerequest

import "context"

// AttendanceRequestService defines the leave/WFH request workflow
type AttendanceRequestService interface {
	// CreateRequest files a PENDING request and notifies approvers
	CreateRequest(ctx context.Context, req CreateAttendanceRequest) (AttendanceRequestResponse, error)

	// GetRequest returns a request visible to the caller
	GetRequest(ctx context.Context, id string, callerID string, callerIsAdmin bool) (AttendanceRequestResponse, error)

	ListMyRequests(ctx context.Context, userID string, filter ListFilter) ([]AttendanceRequestResponse, error)
	ListRequests(ctx context.Context, filter ListFilter) ([]AttendanceRequestResponse, error)

	// UpdateRequest edits a request owned by the caller
	UpdateRequest(ctx context.Context, req UpdateAttendanceRequest) (AttendanceRequestResponse, error)

	// WithdrawRequest deletes a PENDING request owned by the caller
	WithdrawRequest(ctx context.Context, id string, userID string) error

	// Decide approves or rejects a PENDING request atomically
	Decide(ctx context.Context, req DecideRequest) (DecisionResponse, error)

	ListApprovals(ctx context.Context, filter ApprovalFilter) ([]ApprovalResponse, error)
}
