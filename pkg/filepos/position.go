// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package filepos

import (
	"fmt"
)

type Position struct {
	lineNum *int // 1 based
	colNum  *int // 1 based
	file    string
	known   bool
}

func NewPosition(lineNum int) *Position {
	if lineNum <= 0 {
		panic("Lines are 1 based")
	}
	return &Position{lineNum: &lineNum, known: true}
}

// NewPositionInFile returns the Position of line "lineNum" within the file "file"
func NewPositionInFile(lineNum int, file string) *Position {
	p := NewPosition(lineNum)
	p.file = file
	return p
}

// NewPositionWithCol returns the Position of line "lineNum", column "colNum"
// within the file "file".
func NewPositionWithCol(lineNum, colNum int, file string) *Position {
	if colNum <= 0 {
		panic("Columns are 1 based")
	}
	p := NewPositionInFile(lineNum, file)
	p.colNum = &colNum
	return p
}

// NewUnknownPosition is equivalent of zero value *Position
func NewUnknownPosition() *Position {
	return &Position{}
}

// NewUnknownPositionInFile produces a Position of a known file at an unknown line.
func NewUnknownPositionInFile(file string) *Position {
	return &Position{file: file}
}

func (p *Position) IsKnown() bool { return p != nil && p.known }

func (p *Position) LineNum() int {
	if !p.IsKnown() {
		panic("Position is unknown")
	}
	if p.lineNum == nil {
		panic("Position was not properly initialized")
	}
	return *p.lineNum
}

// HasCol reports whether a column is recorded for this Position.
func (p *Position) HasCol() bool {
	return p.IsKnown() && p.colNum != nil
}

func (p *Position) ColNum() int {
	if !p.HasCol() {
		panic("Position has no column")
	}
	return *p.colNum
}

func (p *Position) GetFile() string {
	return p.file
}

func (p *Position) AsString() string {
	return "line " + p.AsCompactString()
}

func (p *Position) AsCompactString() string {
	filePrefix := p.file
	if len(filePrefix) > 0 {
		filePrefix += ":"
	}
	if p.IsKnown() {
		if p.colNum != nil {
			return fmt.Sprintf("%s%d:%d", filePrefix, p.LineNum(), p.ColNum())
		}
		return fmt.Sprintf("%s%d", filePrefix, p.LineNum())
	}
	return fmt.Sprintf("%s?", filePrefix)
}

func (p *Position) DeepCopy() *Position {
	if p == nil {
		return nil
	}
	newPos := &Position{file: p.file, known: p.known}
	if p.lineNum != nil {
		lineVal := *p.lineNum
		newPos.lineNum = &lineVal
	}
	if p.colNum != nil {
		colVal := *p.colNum
		newPos.colNum = &colVal
	}
	return newPos
}

// Equals compares the location of one position with another.
func (p *Position) Equals(other *Position) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.known != other.known || p.file != other.file {
		return false
	}
	if p.known && p.LineNum() != other.LineNum() {
		return false
	}
	if p.HasCol() != other.HasCol() {
		return false
	}
	if p.HasCol() && p.ColNum() != other.ColNum() {
		return false
	}
	return true
}
