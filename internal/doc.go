// Package internal contains the implementation packages behind the
// isorender CLI.
//
// # Package Organization
//
//   - cache: byte-weighted LRU cache with max-age reads
//   - render: multi-round rendering of templ components with async loaders
//   - page: HTML document assembly and payload injection
//   - server: chi-based HTTP server with the response cache in front
//   - devreload: file watching and websocket live reload
//   - config, logging, errors, metrics, retry, version: shared plumbing
//   - demo: the component set served by default
//
// # Request Flow
//
// A request passes the locale and cache middleware in server. On a miss the
// route's page is rendered by render.Renderer, which re-renders the
// component until no render.Load call is left pending, then page.Document
// wraps the HTML and the response is cached when complete.
package internal
