package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "trainerbook.v1.BookingService"

type BookingServiceServer interface {
	ListAvailableDates(context.Context, *ListAvailableDatesRequest) (*ListAvailableDatesResponse, error)
	ListAvailableHours(context.Context, *ListAvailableHoursRequest) (*ListAvailableHoursResponse, error)

	CreateBooking(context.Context, *CreateBookingRequest) (*BookingResponse, error)
	GetBooking(context.Context, *BookingRequest) (*BookingResponse, error)
	ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error)
	AcceptBooking(context.Context, *BookingRequest) (*BookingResponse, error)
	DeclineBooking(context.Context, *BookingRequest) (*BookingResponse, error)
	CancelBooking(context.Context, *BookingRequest) (*BookingResponse, error)
	CompleteBooking(context.Context, *BookingRequest) (*BookingResponse, error)

	ProposeReschedule(context.Context, *ProposeRescheduleRequest) (*ProposeRescheduleResponse, error)
	ResolveReschedule(context.Context, *ResolveRescheduleRequest) (*BookingResponse, error)

	AddTimeOff(context.Context, *AddTimeOffRequest) (*TimeOffResponse, error)
	DeleteTimeOff(context.Context, *DeleteExceptionRequest) (*Empty, error)
	ListTimeOff(context.Context, *ListExceptionsRequest) (*ListTimeOffResponse, error)
	AddManualBlock(context.Context, *AddManualBlockRequest) (*ManualBlockResponse, error)
	DeleteManualBlock(context.Context, *DeleteExceptionRequest) (*Empty, error)
	ListManualBlocks(context.Context, *ListExceptionsRequest) (*ListManualBlocksResponse, error)

	GetSettings(context.Context, *GetSettingsRequest) (*SettingsResponse, error)
	UpdateSettings(context.Context, *UpdateSettingsRequest) (*SettingsResponse, error)
	SetOffMode(context.Context, *SetOffModeRequest) (*Empty, error)
}

var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListAvailableDates", BookingServiceServer.ListAvailableDates),
		unary("ListAvailableHours", BookingServiceServer.ListAvailableHours),
		unary("CreateBooking", BookingServiceServer.CreateBooking),
		unary("GetBooking", BookingServiceServer.GetBooking),
		unary("ListBookings", BookingServiceServer.ListBookings),
		unary("AcceptBooking", BookingServiceServer.AcceptBooking),
		unary("DeclineBooking", BookingServiceServer.DeclineBooking),
		unary("CancelBooking", BookingServiceServer.CancelBooking),
		unary("CompleteBooking", BookingServiceServer.CompleteBooking),
		unary("ProposeReschedule", BookingServiceServer.ProposeReschedule),
		unary("ResolveReschedule", BookingServiceServer.ResolveReschedule),
		unary("AddTimeOff", BookingServiceServer.AddTimeOff),
		unary("DeleteTimeOff", BookingServiceServer.DeleteTimeOff),
		unary("ListTimeOff", BookingServiceServer.ListTimeOff),
		unary("AddManualBlock", BookingServiceServer.AddManualBlock),
		unary("DeleteManualBlock", BookingServiceServer.DeleteManualBlock),
		unary("ListManualBlocks", BookingServiceServer.ListManualBlocks),
		unary("GetSettings", BookingServiceServer.GetSettings),
		unary("UpdateSettings", BookingServiceServer.UpdateSettings),
		unary("SetOffMode", BookingServiceServer.SetOffMode),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trainerbook/v1/booking",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

// FullMethod returns the invocation path of a BookingService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](name string, call func(BookingServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
