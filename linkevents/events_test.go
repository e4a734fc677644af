package linkevents_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paperledger/link-service/linkevents"
)

func TestParseEventSuccess(t *testing.T) {
	body := `{
		"event": "success",
		"state": "opaque-state",
		"public_token": "public-sandbox-token",
		"metadata": {"institution_name": "First National", "account_name": "Checking ****4321"}
	}`

	ev, err := linkevents.ParseEvent(strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, linkevents.OutcomeSuccess, ev.Outcome)
	require.Equal(t, "opaque-state", ev.State)
	require.Equal(t, "public-sandbox-token", ev.PublicToken)
	require.Equal(t, "First National", ev.Metadata["institution_name"])
}

func TestParseEventErrorAndCancelled(t *testing.T) {
	ev, err := linkevents.ParseEvent(strings.NewReader(`{"event":"error","state":"s","error_code":"INSTITUTION_DOWN"}`))
	require.NoError(t, err)
	require.Equal(t, linkevents.OutcomeError, ev.Outcome)
	require.Equal(t, "INSTITUTION_DOWN", ev.ErrorCode)

	ev, err = linkevents.ParseEvent(strings.NewReader(`{"event":"cancelled","state":"s"}`))
	require.NoError(t, err)
	require.Equal(t, linkevents.OutcomeCancelled, ev.Outcome)
}

func TestParseEventRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"not json":              `{"event":`,
		"unknown outcome":       `{"event":"exit","state":"s"}`,
		"success without token": `{"event":"success","state":"s"}`,
		"error without code":    `{"event":"error","state":"s"}`,
		"success without state": `{"event":"success","public_token":"tok"}`,
		"empty body":            ``,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := linkevents.ParseEvent(strings.NewReader(body))
			require.Error(t, err)
		})
	}
}
