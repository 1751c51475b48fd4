package httpx

type ctxKey string

// CtxKeyUsername carries the authenticated username once session resolution
// has succeeded. Rate limiting keys off it for per-user limits.
const CtxKeyUsername ctxKey = "username"
