// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// SourceKind discriminates the three retrieval corpora. The pipeline treats
// retrieved items as read-only references; only the minimal id/label contract
// leaks out of the content stores.
type SourceKind string

const (
	// SourceCareerProfile is an entry from the career profile corpus.
	SourceCareerProfile SourceKind = "career_profile"
	// SourceHelpArticle is an entry from the platform help corpus.
	SourceHelpArticle SourceKind = "help_article"
	// SourceCommunityQA is a moderated question/answer pair from the community.
	SourceCommunityQA SourceKind = "community_qa"
)

// RetrievedItem is one hit from a corpus search.
//
// Kind is the discriminant; ID and Label are the contract every variant
// carries. Snippet is the text the prompt assembler may quote and is already
// truncated by the retrieval engine.
type RetrievedItem struct {
	Kind    SourceKind `json:"kind"`
	ID      string     `json:"id"`
	Label   string     `json:"label"`
	Snippet string     `json:"snippet"`
}

// SourceRef is the citation form of a retrieved item exposed to the UI.
type SourceRef struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SourceRefs groups citations by corpus for the response payload.
type SourceRefs struct {
	Careers  []SourceRef `json:"careers"`
	HelpDocs []SourceRef `json:"help_docs"`
	QA       []SourceRef `json:"qa"`
}

// RetrievalBundle is the fan-in result of the three concurrent corpus
// lookups. Any slice may be empty; an entirely empty bundle is a legal input
// to the prompt assembler.
type RetrievalBundle struct {
	Careers  []RetrievedItem
	HelpDocs []RetrievedItem
	QA       []RetrievedItem
}

// IsEmpty reports whether no corpus returned anything.
func (b RetrievalBundle) IsEmpty() bool {
	return len(b.Careers) == 0 && len(b.HelpDocs) == 0 && len(b.QA) == 0
}

// Sources converts the bundle into the citation shape returned to the UI.
// Slices are always non-nil so the JSON shape stays stable.
func (b RetrievalBundle) Sources() SourceRefs {
	refs := SourceRefs{
		Careers:  make([]SourceRef, 0, len(b.Careers)),
		HelpDocs: make([]SourceRef, 0, len(b.HelpDocs)),
		QA:       make([]SourceRef, 0, len(b.QA)),
	}
	for _, it := range b.Careers {
		refs.Careers = append(refs.Careers, SourceRef{ID: it.ID, Label: it.Label})
	}
	for _, it := range b.HelpDocs {
		refs.HelpDocs = append(refs.HelpDocs, SourceRef{ID: it.ID, Label: it.Label})
	}
	for _, it := range b.QA {
		refs.QA = append(refs.QA, SourceRef{ID: it.ID, Label: it.Label})
	}
	return refs
}
