// Package gmail counts threads in a Gmail inbox.
//
// The count comes from the resultSizeEstimate field of a users.threads.list
// response. Gmail documents it as an estimate: it is usually exact for small
// inboxes, but callers should not rely on that.
//
//	client, err := gmail.NewClient(ctx, []option.ClientOption{option.WithTokenSource(ts)})
//	if err != nil {
//	    return err
//	}
//	n, err := client.CountInboxThreads(ctx, true) // unread only
package gmail
