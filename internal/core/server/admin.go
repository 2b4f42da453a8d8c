package server

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/gatekeeper/internal/conditions"
	"github.com/solatis/gatekeeper/internal/core/api"
)

// AdminServiceName is the fully qualified admin service name.
const AdminServiceName = "gatekeeper.admin.v1.AdminService"

// Full method names of the admin service.
const (
	ReloadMethod = "/" + AdminServiceName + "/Reload"
	StatsMethod  = "/" + AdminServiceName + "/Stats"
)

// maxReportedRejections caps the rejections returned over the wire; the
// full list is in the service log.
const maxReportedRejections = 100

// AdminServer is the server API for the admin service. Messages are the
// well-known Empty and Struct types, so no generated stubs are needed.
type AdminServer interface {
	Reload(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reload", Handler: unaryHandler(ReloadMethod, AdminServer.Reload)},
		{MethodName: "Stats", Handler: unaryHandler(StatsMethod, AdminServer.Stats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatekeeper/admin/v1/admin.proto",
}

// RegisterAdminServer registers srv on s.
func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

type adminMethod func(AdminServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call adminMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdminServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AdminServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AdminClient calls the admin service.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

// NewAdminClient returns a client over cc.
func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

// Reload asks the server to reload from its backing store.
func (c *AdminClient) Reload(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ReloadMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns statistics of the server's current snapshot.
func (c *AdminClient) Stats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, StatsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// adminService implements AdminServer over a ConditionService.
type adminService struct {
	svc *api.ConditionService
}

func (a *adminService) Reload(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report, err := a.svc.Reload(ctx)
	if err != nil {
		if errors.Is(err, api.ErrSourceUnavailable) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	fields := countFields(report.Stats)
	fields["load_id"] = string(report.LoadID)
	fields["rejections"] = rejectionList(report.Rejections)
	fields["disabled_player_conditions"] = uintList(report.Disabled)
	return newStruct(fields)
}

func (a *adminService) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := a.svc.Stats()
	fields := countFields(st.Counts)
	fields["loaded"] = st.Loaded
	fields["load_id"] = string(st.LoadID)
	fields["loaded_at"] = st.LoadedAt.UTC().Format(time.RFC3339Nano)
	fields["consecutive_failures"] = st.ConsecutiveFailures
	fields["rejections"] = rejectionList(st.Rejections)
	fields["disabled_player_conditions"] = uintList(st.Disabled)
	return newStruct(fields)
}

func countFields(s conditions.Stats) map[string]any {
	return map[string]any{
		"lists":             s.Lists,
		"predicates":        s.Predicates,
		"player_conditions": s.PlayerConditions,
		"unit_conditions":   s.UnitConditions,
		"expressions":       s.Expressions,
		"disabled":          s.Disabled,
		"rejected":          s.Rejected,
	}
}

func rejectionList(rejections []conditions.Rejection) []any {
	list := make([]any, 0, min(len(rejections), maxReportedRejections))
	for _, r := range rejections {
		if len(list) == maxReportedRejections {
			break
		}
		list = append(list, map[string]any{
			"table": r.Table,
			"row":   r.Row,
			"id":    r.ID,
			"error": r.Err.Error(),
		})
	}
	return list
}

func uintList(ids []uint32) []any {
	list := make([]any, len(ids))
	for i, id := range ids {
		list[i] = id
	}
	return list
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
