package descriptor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// threeten maps java/time to org/threeten/bp and a few single classes
var threeten = TypeReplacerFunc(func(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, "java/time/"):
		return "org/threeten/bp/" + strings.TrimPrefix(name, "java/time/"), true
	case name == "java/util/Optional":
		return "java8/util/Optional", true
	case name == "java/util/Map$Entry":
		return "java8/util/MapEntry$Impl", true
	}
	return "", false
})

func TestRewriteDescriptor(t *testing.T) {
	r := NewRewriter(threeten)

	tests := []struct {
		in   string
		want string
	}{
		{"(Ljava/time/LocalDate;)V", "(Lorg/threeten/bp/LocalDate;)V"},
		{"Ljava/time/Instant;", "Lorg/threeten/bp/Instant;"},
		{"[[Ljava/time/Instant;", "[[Lorg/threeten/bp/Instant;"},
		{"(IJLjava/lang/String;[Ljava/time/ZoneId;D)Ljava/util/Optional;", "(IJLjava/lang/String;[Lorg/threeten/bp/ZoneId;D)Ljava8/util/Optional;"},
		{"()V", "()V"},
		{"I", "I"},
		{"(Ljava/lang/String;)Ljava/lang/Object;", "(Ljava/lang/String;)Ljava/lang/Object;"},
		{"(Ljava/time/LocalDate", "(Ljava/time/LocalDate"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, r.RewriteDescriptor(tt.in))
		})
	}
}

func TestRewriteDescriptor_Idempotent(t *testing.T) {
	r := NewRewriter(threeten)
	inputs := []string{
		"(Ljava/time/LocalDate;)V",
		"(Ljava/time/chrono/ChronoLocalDate;[Ljava/util/Optional;)Ljava/time/Instant;",
		"Ljava/lang/String;",
	}
	for _, in := range inputs {
		once := r.RewriteDescriptor(in)
		assert.Equal(t, once, r.RewriteDescriptor(once), in)
	}
}

func TestRewriteSignature(t *testing.T) {
	r := NewRewriter(threeten)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "field",
			in:   "Ljava/util/List<Ljava/time/LocalDate;>;",
			want: "Ljava/util/List<Lorg/threeten/bp/LocalDate;>;",
		},
		{
			name: "wildcards",
			in:   "Ljava/util/Map<+Ljava/time/Instant;-Ljava/time/Duration;>;",
			want: "Ljava/util/Map<+Lorg/threeten/bp/Instant;-Lorg/threeten/bp/Duration;>;",
		},
		{
			name: "unbounded",
			in:   "Ljava/util/Optional<*>;",
			want: "Ljava8/util/Optional<*>;",
		},
		{
			name: "class with type parameters",
			in:   "<T::Ljava/lang/Comparable<-TT;>;D:Ljava/time/LocalDate;>Ljava/lang/Object;Ljava/util/function/Supplier<TD;>;",
			want: "<T::Ljava/lang/Comparable<-TT;>;D:Lorg/threeten/bp/LocalDate;>Ljava/lang/Object;Ljava/util/function/Supplier<TD;>;",
		},
		{
			name: "method with throws",
			in:   "<X:Ljava/lang/Exception;>(Ljava/util/List<[Ljava/time/Instant;>;TX;)Ljava/util/Optional<Ljava/time/Instant;>;^TX;^Ljava/time/DateTimeException;",
			want: "<X:Ljava/lang/Exception;>(Ljava/util/List<[Lorg/threeten/bp/Instant;>;TX;)Ljava8/util/Optional<Lorg/threeten/bp/Instant;>;^TX;^Lorg/threeten/bp/DateTimeException;",
		},
		{
			name: "nested generics",
			in:   "Ljava/util/Map<Ljava/lang/String;Ljava/util/List<Ljava/util/Optional<Ljava/time/Year;>;>;>;",
			want: "Ljava/util/Map<Ljava/lang/String;Ljava/util/List<Ljava8/util/Optional<Lorg/threeten/bp/Year;>;>;>;",
		},
		{
			name: "inner class suffix",
			in:   "Ljava/util/Map<TK;TV;>.Entry<TK;TV;>;",
			want: "Ljava/util/Map<TK;TV;>.Entry<TK;TV;>;",
		},
		{
			name: "malformed passes through",
			in:   "Ljava/util/List<Ljava/time/LocalDate;",
			want: "Ljava/util/List<Lorg/threeten/bp/LocalDate;",
		},
		{
			name: "no class names",
			in:   "TT;",
			want: "TT;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.RewriteSignature(tt.in))
		})
	}
}

func TestRewriteSignature_InnerClassRenamed(t *testing.T) {
	r := NewRewriter(TypeReplacerFunc(func(name string) (string, bool) {
		switch name {
		case "java/util/Map":
			return "java8/util/Map", true
		case "java/util/Map$Entry":
			return "java8/util/Map$Entry", true
		}
		return "", false
	}))

	assert.Equal(t,
		"Ljava8/util/Map<TK;TV;>.Entry<TK;TV;>;",
		r.RewriteSignature("Ljava/util/Map<TK;TV;>.Entry<TK;TV;>;"))
}

func TestRewriteClassName(t *testing.T) {
	r := NewRewriter(threeten)
	assert.Equal(t, "org/threeten/bp/LocalDate", r.RewriteClassName("java/time/LocalDate"))
	assert.Equal(t, "[Lorg/threeten/bp/LocalDate;", r.RewriteClassName("[Ljava/time/LocalDate;"))
	assert.Equal(t, "[I", r.RewriteClassName("[I"))
	assert.Equal(t, "java/lang/String", r.RewriteClassName("java/lang/String"))

	assert.Equal(t, "java/time/LocalDate", NewRewriter(nil).RewriteClassName("java/time/LocalDate"))
}

func TestHelpers(t *testing.T) {
	desc := "(I[JLjava/lang/String;[[Ljava/time/Instant;)Ljava/util/Optional;"
	assert.Equal(t, []string{"I", "[J", "Ljava/lang/String;", "[[Ljava/time/Instant;"}, MethodParameters(desc))
	assert.Equal(t, "Ljava/util/Optional;", MethodReturn(desc))
	assert.Equal(t, []string{"java/lang/String", "java/time/Instant", "java/util/Optional"}, ClassNames(desc))
	assert.Nil(t, MethodParameters("I"))

	assert.Equal(t, "(Ljava/util/List;I)V", PrependParameter("(I)V", "Ljava/util/List;"))
	assert.Equal(t, "I", PrependParameter("I", "Ljava/util/List;"))
	assert.Equal(t, "Ljava/util/List;", ClassType("java/util/List"))
	assert.Equal(t, "[I", ClassType("[I"))
}
