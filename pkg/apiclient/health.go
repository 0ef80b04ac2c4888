package apiclient

// Healthy reports whether the server answers its liveness probe.
func (c *Client) Healthy() bool {
	return c.get("/health", nil) == nil
}

// Ready reports whether the server's readiness probe passes, meaning the
// database is reachable.
func (c *Client) Ready() bool {
	return c.get("/health/ready", nil) == nil
}
