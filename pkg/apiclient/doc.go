/*
Package apiclient is a client for the ShareBox file-sharing backend.

# Overview

Every call is sent with the access token read from a credstore.Store. When
the backend rejects a call with the message "Access token expired" the client
exchanges the stored refresh token for a new pair, saves it and sends the
original call once more. Nothing is retried beyond that single attempt.

	store := credstore.NewFile(path, "")
	client := apiclient.New("http://localhost:8080/api/v1", store)

	// Log in; the pair is saved to store
	_, err := client.Authenticate(ctx, "alice", "secret")

	// Authenticated calls refresh transparently
	files, err := client.ListMyFiles(ctx)

# Request kinds

All calls go through one executor, Do, parameterised by a Decoder. The
helpers cover the usual shapes:

	user, err := apiclient.JSON[*apiclient.UserDto](ctx, client, &apiclient.Request{Path: "/users/me"})
	blob, err := apiclient.FetchBlob(ctx, client, &apiclient.Request{Path: "/files/download/" + id})
	dto, err := apiclient.Multipart[*apiclient.FileDto](ctx, client, &apiclient.Request{
		Method: http.MethodPost,
		Path:   "/files",
		Form:   &apiclient.Form{Files: []apiclient.FormFile{apiclient.FileFromPath("file", "report.pdf")}},
	})

A JSON or multipart call answered with 204 returns the zero value of T.

# Errors

Every failure is an *Error whose Kind tells callers what to do next:

	files, err := client.ListMyFiles(ctx)
	switch {
	case apiclient.RequiresLogin(err):
		// No refresh token, or the refresh was rejected. Log in again.
	case errors.Is(err, apiclient.ErrRetryFailed):
		// Refreshed, but the retried call failed.
	case errors.Is(err, apiclient.ErrAPI):
		// Ordinary backend error; err.Error() is the backend message.
	}

# Concurrency

A Client is safe for concurrent use. Concurrent calls that hit an expired
token share one refresh by default; WithRefreshCoalescing(false) makes each
call refresh on its own.
*/
package apiclient
