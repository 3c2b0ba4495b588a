// Package http exposes the section preview API on a chi router.
//
// Routes mount under the configured base path (default /api):
//   - Templates: POST /tenants/{tenant}/templates, GET /tenants/{tenant}/templates,
//     GET|DELETE /tenants/{tenant}/templates/{type},
//     GET /tenants/{tenant}/templates/{type}/preview?preset=name
//   - Rendering: POST /tenants/{tenant}/render/section, POST /tenants/{tenant}/render/page
//   - Snippets: PUT|GET /tenants/{tenant}/snippets/{key}
//
// Rendered fragments are returned as text/html; everything else is JSON.
package http
