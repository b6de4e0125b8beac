// Package render implements multi-round server-side rendering of templ
// components.
//
// A page is rendered repeatedly. During a round, components ask for async
// data with Load. Keys that were resolved in an earlier round return their
// value; unknown keys are queued and reported as not ready, so the component
// renders a placeholder. Between rounds the queued loaders run concurrently,
// each with retries. Rendering stops as soon as a round queues nothing new,
// or when the round limit is reached, in which case the last output is
// returned marked incomplete.
//
// A component aborts a render by returning an error from Render. Errors from
// the errors package keep their HTTP status (NotFound, Redirect, ...); see
// errors.HTTPStatus for the mapping of everything else.
package render
