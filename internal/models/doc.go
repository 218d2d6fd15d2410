// Package models lists the Gemini models available to an API key, grouped
// by what PopLingo would use them for: text lookups, illustrations and
// speech.
package models
