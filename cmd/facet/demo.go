package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/facet/vm"
	"github.com/chazu/facet/vm/wire"
)

func newDemoCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "demo OUTPUT",
		Short: "Write the sample todo-list program as a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := demoProgram()
			if err != nil {
				return err
			}
			if err := wire.WriteFile(args[0], "todo", p); err != nil {
				return err
			}
			h, err := wire.HashProgram(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d instructions, sha256 %x)\n", args[0], len(p.Code), h[:8])
			return nil
		},
	}
}

// demoProgram renders
//
//	<h1>{{title}}</h1>
//	<ul class="todos">
//	  {{#each items key="id"}}<li class={{item.state}}>{{item.label}}</li>
//	  {{else}}<li class="empty">nothing to do</li>{{/each}}
//	</ul>
//	{{#if footer}}<footer>{{footer}}</footer>{{/if}}
func demoProgram() (*vm.Program, error) {
	b := vm.NewBuilder()
	b.Mark("start")

	b.Path("title")
	b.Emit(vm.OpJumpIfNotModified)
	b.OpenElement("h1")
	b.FlushElement()
	b.Path("title")
	b.Emit(vm.OpAppendText)
	b.CloseElement()
	b.Emit(vm.OpDidModify)

	b.OpenElement("ul")
	b.StaticAttr("class", "todos")
	b.FlushElement()
	b.Path("items")
	b.Emit(vm.OpPutIterator, b.Intern("id"))
	b.Emit(vm.OpJumpUnless, vm.Label("empty"))
	b.Emit(vm.OpEnterList, vm.Label("item"), vm.Label("itemEnd"))
	b.Mark("loop")
	b.Emit(vm.OpIterate, vm.Label("break"))
	b.Emit(vm.OpJump, vm.Label("loop"))
	b.Mark("break")
	b.Emit(vm.OpExitList)
	b.Emit(vm.OpJump, vm.Label("listEnd"))
	b.Mark("empty")
	b.Emit(vm.OpPop, 1)
	b.OpenElement("li")
	b.StaticAttr("class", "empty")
	b.FlushElement()
	b.Text("nothing to do")
	b.CloseElement()
	b.Mark("listEnd")
	b.CloseElement()

	b.Emit(vm.OpEnter, vm.Label("footerExit"))
	b.Path("footer")
	b.ToBoolean(vm.EnvironmentTest)
	b.Emit(vm.OpJumpUnless, vm.Label("footerExit"))
	b.OpenElement("footer")
	b.FlushElement()
	b.Path("footer")
	b.Emit(vm.OpAppendText)
	b.CloseElement()
	b.Mark("footerExit")
	b.Emit(vm.OpExit)
	b.Mark("end")

	item := b.Symbol("item")
	b.Mark("item")
	b.Emit(vm.OpBindPositionalArgs, b.Array(item))
	b.OpenElement("li")
	b.Emit(vm.OpGetSymbol, item)
	b.Emit(vm.OpGetProperty, b.Intern("state"))
	b.DynamicAttr("class", false)
	b.FlushElement()
	b.Emit(vm.OpGetSymbol, item)
	b.Emit(vm.OpGetProperty, b.Intern("label"))
	b.Emit(vm.OpAppendText)
	b.CloseElement()
	b.Mark("itemEnd")

	b.Entry("start", "end")
	return b.Build()
}
