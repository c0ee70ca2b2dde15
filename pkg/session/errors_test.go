package session

import (
	"errors"
	"fmt"
	"testing"

	"insightwire/pkg/telegram"
)

func TestCategoryFromError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"categorized", NewError(ErrorReplyTimeout, "slow"), ErrorReplyTimeout},
		{"not connected sentinel", fmt.Errorf("wrap: %w", telegram.ErrNotConnected), ErrorNotConnected},
		{"authentication sentinel", fmt.Errorf("wrap: %w", telegram.ErrAuthentication), ErrorAuthentication},
		{"plain", errors.New("boom"), ErrorCommandFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CategoryFromError(tc.err); got != tc.want {
				t.Fatalf("category = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorText(t *testing.T) {
	err := NewError(ErrorNotConnected, "connect first")
	if err.Error() != "not_connected: connect first" {
		t.Fatalf("error = %q", err.Error())
	}

	bare := &Error{Category: ErrorCommandFailed}
	if bare.Error() != ErrorCommandFailed {
		t.Fatalf("error = %q", bare.Error())
	}
}

func TestCommandFailureMapsAuthKinds(t *testing.T) {
	plain := errors.New("flood wait")

	if got := CategoryFromError(commandFailure(kindSignIn, plain)); got != ErrorAuthentication {
		t.Fatalf("sign_in category = %q, want %q", got, ErrorAuthentication)
	}
	if got := CategoryFromError(commandFailure(kindGetChannels, plain)); got != ErrorCommandFailed {
		t.Fatalf("get_channels category = %q, want %q", got, ErrorCommandFailed)
	}
	if commandFailure(kindConnect, nil) != nil {
		t.Fatal("nil error must map to nil")
	}
}
