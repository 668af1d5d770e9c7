package conformance

import "github.com/brain2labs/docstore/value"

// complexCondition1 is the 21-clause predicate scenario 3 names; it selects
// exactly the pk01/id=9 canonical document.
const complexCondition1 = `
	length(arrstr[0]) > 7
	and contains(arrstr[1], 'und')
	and not contains(const, '$')
	and starts_with(arrobj[0].ostr, 'nine')
	and 8 = array_length(obj.narr)
	and array_contains(arrint, 909)
	and array_contains_any(arrstr, ['xyz', 'hundred nine', 'abc'])
	and is_defined(str)
	and is_not_defined(opt)
	and is_type(float, 'number')
	and is_type(obj.nobj, 'object')
	and is_type(empty, 'null')
	and not is_type(bool, 'array')
	and obj.nstr = "9"
	and arrobj[1].oint = 9000000000
	and 9.1 != float
	and int >= 8 and (bool = true or obj.nobj.nnfloat <= -900.1)
	and not (pk = "pk00" or length(obj.nobj.nnstr) != 2)
	and obj.nint between -10 and 10
	and str in ('one', 'two', 'eight', 'nine')
	and obj.nint not in (-1, -2, -8)
`

// badComplexCondition1 is complexCondition1 with one extra clause the
// pk01/id=9 document fails (obj.nint=-3 is not > 0), used by the
// transaction-atomicity scenario to force an abort.
const badComplexCondition1 = complexCondition1 + "\n\tand obj.nint > 0"

// complexCondition1WithParams is complexCondition1 rewritten against
// placeholders, paired with complexCondition1Params below.
const complexCondition1WithParams = `
	length(arrstr[0]) > @p1
	and contains(arrstr[1], @p2)
	and not contains(const, @p3)
	and starts_with(arrobj[0].ostr, @p4)
	and @p5 = array_length(obj.narr)
	and array_contains(arrint, @p6)
	and array_contains_any(arrstr, @p7)
	and is_defined(str)
	and is_not_defined(opt)
	and is_type(float, @p8)
	and is_type(obj.nobj, @p9)
	and is_type(empty, @p10)
	and not is_type(bool, @p11)
	and obj.nstr = @p12
	and arrobj[1].oint = @p13
	and @p14 != float
	and int >= @p15 and (bool = @p16 or obj.nobj.nnfloat <= @p17)
	and not (pk = @p18 or length(obj.nobj.nnstr) != @p19)
	and obj.nint between @p20 and @p21
	and str in (@p22, @p23, @p24, @p25)
	and obj.nint not in (@p26, @p27, @p28)
`

func complexCondition1Params() map[string]value.Value {
	return map[string]value.Value{
		"p1":  value.Int(7),
		"p2":  value.String("und"),
		"p3":  value.String("$"),
		"p4":  value.String("nine"),
		"p5":  value.Int(8),
		"p6":  value.Int(909),
		"p7":  value.Array(value.String("xyz"), value.String("hundred nine"), value.String("abc")),
		"p8":  value.String("number"),
		"p9":  value.String("object"),
		"p10": value.String("null"),
		"p11": value.String("array"),
		"p12": value.String("9"),
		"p13": value.Int(9000000000),
		"p14": value.Float(9.1),
		"p15": value.Int(8),
		"p16": value.Bool(true),
		"p17": value.Float(-900.1),
		"p18": value.String("pk00"),
		"p19": value.Int(2),
		"p20": value.Int(-10),
		"p21": value.Int(10),
		"p22": value.String("one"),
		"p23": value.String("two"),
		"p24": value.String("eight"),
		"p25": value.String("nine"),
		"p26": value.Int(-1),
		"p27": value.Int(-2),
		"p28": value.Int(-8),
	}
}

// complexCondition2 selects the pk01/id=8 canonical document; used by the
// transaction-atomicity scenario's conditional delete of document 8.
const complexCondition2 = `
	length(arrstr[0]) > 7
	and contains(arrstr[1], 'und')
	and not contains(const, '$')
	and starts_with(arrobj[0].ostr, 'eight')
	and 7 = array_length(obj.narr)
	and array_contains(arrint, 808)
	and array_contains_any(arrstr, ['xyz', 'hundred eight', 'abc'])
	and is_defined(str)
	and is_not_defined(opt)
	and is_type(float, 'number')
	and is_type(obj.nobj, 'object')
	and is_type(empty, 'null')
	and not is_type(bool, 'array')
	and obj.nstr = "8"
	and arrobj[1].oint = 8000000000
	and 8.1 != float
	and int >= 7 and (bool = false or obj.nobj.nnfloat <= -800.1)
	and not (pk = "pk00" or length(obj.nobj.nnstr) != 4)
	and str in ('one', 'two', 'eight', 'nine')
	and obj.nint not in (-1, -2, -9)
`
