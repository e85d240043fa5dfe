// Copyright (c) 2026 blairtcg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cloudlog

// Block labels of a composed message, in output order.
const (
	BlockMessage = "MESSAGE"
	BlockError   = "ERROR"
	BlockRequest = "REQUEST"
	BlockStack   = "STACK"

	emptyStack = "<empty>"
)

// Record is the structured input of ComposeMessage. Every field is optional.
type Record struct {
	Message any
	Err     error
	Request *RequestSnapshot
}

// ComposeMessage lays out r as text blocks, in this order: MESSAGE, ERROR,
// REQUEST, STACK. A block whose source is empty is left out without leaving
// a blank line behind. STACK is always present: it shows the stack recorded
// by the error (see WithStack) or else the stack of the ComposeMessage call.
func ComposeMessage(r Record) string {
	return composeMessage(r, captureStack(1))
}

func composeMessage(r Record, callSite []uintptr) string {
	b := getBuffer()
	defer putBuffer(b)

	block := func(label, text string) {
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(text)
	}

	if r.Message != nil {
		block(BlockMessage, Stringify(r.Message))
	}
	if r.Err != nil {
		block(BlockError, Stringify(r.Err))
	}
	if !r.Request.IsZero() {
		block(BlockRequest, r.Request.String())
	}

	pcs := errorStack(r.Err)
	if len(pcs) == 0 {
		pcs = callSite
	}
	stack := renderStack(pcs)
	if stack == "" {
		block(BlockStack, emptyStack)
	} else {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(BlockStack)
		b.WriteString(":\n")
		b.WriteString(stack[:len(stack)-1])
	}
	return string(b.B)
}
