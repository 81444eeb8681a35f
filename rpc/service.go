// Copyright 2019 The go-ultiledger Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "ultivault.Ledger"
	// metadata key of the network ID
	NetworkIDKey = "network_id"
)

type unaryMethod func(s *LedgerServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, m unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			req := new(structpb.Struct)
			if err := dec(req); err != nil {
				return nil, err
			}
			s := srv.(*LedgerServer)
			if interceptor == nil {
				return m(s, ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return m(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes the ledger service, the messages are generic
// protobuf structs keyed by field name.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetBalance", (*LedgerServer).GetBalance),
		unaryHandler("Deposit", (*LedgerServer).Deposit),
		unaryHandler("Withdraw", (*LedgerServer).Withdraw),
		unaryHandler("WithdrawAll", (*LedgerServer).WithdrawAll),
		unaryHandler("Transfer", (*LedgerServer).Transfer),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ultivault/ledger",
}

// RegisterLedgerServer registers the ledger service to the gRPC server.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv *LedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}
