/*
Package verifysdk provides a client SDK for the Nzassa verification service.

The service issues short-lived verification sessions that walk a user through
channel selection (authenticator app or SMS), code dispatch with resend and
cooldown, and 6-digit code submission. The SDK wraps the JSON API with typed
requests, responses and errors.

Create a client with the caller's bearer token and drive the flow:

	client := verifysdk.NewClient("https://verify.example.com", accessToken)

	session, err := client.CreateSession(ctx)

	// Pick a channel; the authenticator channel returns a provisioning
	// payload exactly once.
	selected, err := client.SelectChannel(ctx, session.ID, verifysdk.SelectChannelRequest{
		Channel: "sms",
		Destination: "+2250102030405",
	})

	// Dispatch and submit.
	_, err = client.RequestCode(ctx, session.ID)
	result, err := client.SubmitCode(ctx, session.ID, "123456")

Errors unmarshal into *APIError, so callers can switch on the error code:

	if apiErr, ok := err.(*verifysdk.APIError); ok {
		switch apiErr.Code {
		case verifysdk.ErrorCodeCooldownActive:
			// wait apiErr.RetryAfter seconds
		case verifysdk.ErrorCodeCodeRejected:
			// show apiErr.Description and the remaining attempts
		}
	}
*/
package verifysdk
