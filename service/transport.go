package service

import (
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"go.dedis.ch/lbvs"
)

// Handler is a role reachable by messages. Process dispatches on the type
// of msg to the typed handler of the role.
type Handler interface {
	Process(msg network.Message) (network.Message, error)
}

// call delivers req to h and returns its reply. Both go through the
// tagged wire encoding so a role only ever sees what it could decode.
func call(h Handler, req network.Message) (network.Message, error) {
	msg, err := roundTrip(req)
	if err != nil {
		return nil, xerrors.Errorf("request: %v", err)
	}
	reply, err := h.Process(msg)
	if err != nil {
		return nil, err
	}
	out, err := roundTrip(reply)
	if err != nil {
		return nil, xerrors.Errorf("reply: %v", err)
	}
	return out, nil
}

func roundTrip(msg network.Message) (network.Message, error) {
	buf, err := network.Marshal(msg)
	if err != nil {
		return nil, err
	}
	_, out, err := network.Unmarshal(buf, lbvs.Suite)
	return out, err
}

func unexpected(msg network.Message) error {
	return xerrors.Errorf("unexpected message %T", msg)
}

// codeClient is the return code server seen through messages.
type codeClient struct {
	h Handler
}

func (c codeClient) Code(req *CodeRequest) (*RequestCodeReply, error) {
	msg, err := call(c.h, req)
	if err != nil {
		return nil, err
	}
	reply, ok := msg.(*RequestCodeReply)
	if !ok {
		return nil, unexpected(msg)
	}
	return reply, nil
}

func (c codeClient) ConfirmBallot(req *ConfirmBallot) error {
	_, err := call(c.h, req)
	return err
}

func (c codeClient) RefuseBallot(req *RefuseBallot) error {
	_, err := call(c.h, req)
	return err
}

func getView(h Handler) (*View, error) {
	msg, err := call(h, &GetView{})
	if err != nil {
		return nil, err
	}
	v, ok := msg.(*View)
	if !ok {
		return nil, unexpected(msg)
	}
	return v, nil
}
