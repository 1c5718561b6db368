// Package textutil estimates chat-model token counts and splits long
// transcripts into chunks that fit a token budget.
//
// The estimate follows the shape of byte-pair encoders: roughly four bytes
// of Latin text per token, one token per CJK character, one per punctuation
// mark. It errs high so chunks stay under the model's real limit.
package textutil
