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

import "time"

const _digitPairs = "00010203040506070809" +
	"10111213141516171819" +
	"20212223242526272829" +
	"30313233343536373839" +
	"40414243444546474849" +
	"50515253545556575859" +
	"60616263646566676869" +
	"70717273747576777879" +
	"80818283848586878889" +
	"90919293949596979899"

func appendPair(b []byte, v int) []byte {
	i := uint(v%100) * 2
	return append(b, _digitPairs[i], _digitPairs[i+1])
}

// appendStamp formats t for console output. The default layout is encoded by
// hand; any other layout goes through time.AppendFormat.
func appendStamp(b []byte, t time.Time, layout string) []byte {
	if layout != DefaultTimeFormat {
		return t.AppendFormat(b, layout)
	}

	year, month, day := t.Date()
	if year < 0 || year > 9999 {
		return t.AppendFormat(b, layout)
	}
	hour, min, sec := t.Clock()

	b = appendPair(b, year/100)
	b = appendPair(b, year)
	b = append(b, '/')
	b = appendPair(b, int(month))
	b = append(b, '/')
	b = appendPair(b, day)
	b = append(b, ' ')
	b = appendPair(b, hour)
	b = append(b, ':')
	b = appendPair(b, min)
	b = append(b, ':')
	return appendPair(b, sec)
}
