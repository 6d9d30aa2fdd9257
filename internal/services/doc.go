// Package services defines the Provider capability contract for music
// streaming catalogs and implements it once per provider.
//
// Provider differences (pagination cursor shape, batch-size ceilings, error
// codes) are normalized inside each implementation and never leak upward.
// Every network call passes through the provider's rate limiter first; the
// layer performs no retries of its own.
package services
