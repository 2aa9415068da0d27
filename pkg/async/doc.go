// Package async runs a computation in its own goroutine and hands back a
// Future for its result.
//
// Async starts the supplied function and returns immediately. The caller can
// block with Await, block until a context is done with AwaitContext, or poll
// with IsComplete. If the context passed to Async is already canceled the
// function is never invoked and the Future completes with the context error.
//
// # Usage
//
//	f := async.Async(ctx, projectID, api.FetchCurrentSubscription)
//
//	// do other work …
//	sub, err := f.AwaitContext(ctx)
//	if err != nil {
//	    return err
//	}
//
// AwaitContext only stops the caller from waiting. Canceling the work itself
// is the job of the context given to Async.
package async
