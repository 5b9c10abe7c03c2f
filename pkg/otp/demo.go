package otp

import (
	"context"

	"space-notes-backend/pkg/contact"

	"github.com/google/uuid"
)

// DemoService accepts any syntactically valid code for any contact. It keeps
// no state and delivers nothing, so it must never serve production traffic.
type DemoService struct {
	exposeCode bool
}

func NewDemoService(exposeCode bool) *DemoService {
	return &DemoService{exposeCode: exposeCode}
}

func (d *DemoService) Send(_ context.Context, raw string) (*SendResult, error) {
	c := contact.Validate(raw)
	if !c.Valid {
		return &SendResult{Success: false, Message: contact.InvalidMessage}, nil
	}
	res := &SendResult{Success: true, Message: MsgDemoSent, IsDemo: true}
	if d.exposeCode {
		res.DebugOTP = DemoCode
	}
	return res, nil
}

func (d *DemoService) Verify(_ context.Context, raw, code string) (*VerifyResult, error) {
	c := contact.Validate(raw)
	if !c.Valid {
		return &VerifyResult{Success: false, Message: contact.InvalidMessage}, nil
	}
	if !ValidCode(code) {
		return &VerifyResult{Success: false, Message: MsgInvalidFormat, IsDemo: true}, nil
	}
	if demo, ok := ResolveIdentity(c.Normalized); ok {
		return &VerifyResult{Success: true, Message: MsgVerified, IsDemo: true, Identity: demo.Identity()}, nil
	}
	return &VerifyResult{Success: true, Message: MsgVerified, IsDemo: true, Identity: newIdentity(uuid.NewString(), c)}, nil
}
