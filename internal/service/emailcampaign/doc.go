// Package emailcampaign implements the email campaign and mailing list
// lifecycle: creation, scheduling, sending through the delivery layer,
// funnel metric ingestion, and the cached analytics surface.
package emailcampaign
