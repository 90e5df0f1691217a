// Package delivery sends campaign email through AWS SES and renders
// campaign content with the Liquid template language.
package delivery
